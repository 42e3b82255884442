package appfs

import "embed"

// layouts start with "_" so the email templates are listed explicitly
//go:embed migrations assets/common-passwords.txt.gz assets/templates/email/*
var FS embed.FS
