package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	billRepo billing.Repository
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the database")
	fmt.Fprintln(cli.out, "  createsuperuser -email EMAIL -name NAME - create (or promote) a superadmin")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  markoverdue - flag unpaid bills past their due date as overdue")
}

// promptPassword reads a password without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperUserCmd := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	createSuperUserEmail := createSuperUserCmd.String("email", "", "The superadmin's email. The password will be prompted next.")
	createSuperUserName := createSuperUserCmd.String("name", "", "The superadmin's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createsuperuser":
		createSuperUserCmd.SetOutput(cli.out)
		if err := createSuperUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperUserEmail == "" || *createSuperUserName == "" {
			createSuperUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createSuperUserCmd.Usage()
			return errHelp
		}
		return cli.createSuperUser(*createSuperUserName, *createSuperUserEmail, pwd)

	case "resetpassword":
		resetPasswordCmd.SetOutput(cli.out)
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "markoverdue":
		return cli.markOverdue()

	default:
		cli.printUsage()
		return errHelp
	}
}
