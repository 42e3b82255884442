package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) markOverdue() error {
	count, err := cli.billRepo.MarkOverdue(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d bill(s) marked overdue\n", count)
	return nil
}
