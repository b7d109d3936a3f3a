package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/Bren2010/mixer/api"
	"github.com/Bren2010/mixer/crypto/commitments"
	"github.com/Bren2010/mixer/crypto/suites"
)

func secretCommand() *cli.Command {
	return &cli.Command{
		Name:   "secret",
		Usage:  "Generate a random secret and topic",
		Flags:  []cli.Flag{suiteFlag()},
		Action: generateSecret,
	}
}

func depositCommand() *cli.Command {
	return &cli.Command{
		Name:  "deposit",
		Usage: "Deposit into the pool and save the note",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "sender", Usage: "Account to debit", Required: true},
			&cli.Uint64Flag{Name: "recipient", Usage: "Account to credit on withdrawal", Required: true},
			&cli.Uint64Flag{Name: "secret", Usage: "Deposit secret (random if not set)"},
			&cli.Uint64Flag{Name: "topic", Usage: "Withdrawal topic (random if not set)"},
			noteFlag(),
		},
		Action: deposit,
	}
}

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:   "withdraw",
		Usage:  "Withdraw the deposit described by a note",
		Flags:  []cli.Flag{noteFlag()},
		Action: withdraw,
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check a note's path against a root, or against the server's root history",
		Flags: []cli.Flag{
			noteFlag(),
			suiteFlag(),
			&cli.StringFlag{Name: "root", Usage: "Hex-encoded root to verify against"},
		},
		Action: verify,
	}
}

func rootsCommand() *cli.Command {
	return &cli.Command{
		Name:   "roots",
		Usage:  "List the server's root history",
		Action: listRoots,
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the balance of one or more accounts",
		ArgsUsage: "<account> [<account>...]",
		Action:    showBalances,
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	return table
}

// randomOr returns the value of the named flag if it was set, and a random
// value otherwise.
func randomOr(ctx *cli.Context, name string) (uint64, error) {
	if ctx.IsSet(name) {
		return ctx.Uint64(name), nil
	}
	return commitments.GenerateSecret()
}

func generateSecret(ctx *cli.Context) error {
	cs, err := suites.FromName(ctx.String("suite"))
	if err != nil {
		return err
	}
	secret, err := commitments.GenerateSecret()
	if err != nil {
		return err
	}
	topic, err := commitments.GenerateSecret()
	if err != nil {
		return err
	}

	table := newTable(ctx.App.Writer, "Field", "Value")
	table.AppendBulk([][]string{
		{"secret", strconv.FormatUint(secret, 10)},
		{"topic", strconv.FormatUint(topic, 10)},
		{"commitment", commitments.Commit(cs, secret).String()},
		{"nullifier", commitments.Nullify(cs, secret, topic).String()},
	})
	table.Render()
	return nil
}

func deposit(ctx *cli.Context) error {
	secret, err := randomOr(ctx, "secret")
	if err != nil {
		return err
	}
	topic, err := randomOr(ctx, "topic")
	if err != nil {
		return err
	}

	fh, err := createNote(ctx.String("note"))
	if err != nil {
		return err
	}

	// Once the request is sent the deposit may have been applied, so every
	// error from here on carries what is needed to withdraw it.
	client := api.NewClient(ctx.String("server"))
	note, err := client.Deposit(ctx.Context, api.DepositRequest{
		Sender:    ctx.Uint64("sender"),
		Secret:    secret,
		Topic:     topic,
		Recipient: ctx.Uint64("recipient"),
	})
	if err != nil {
		discardNote(fh)
		return fmt.Errorf("deposit failed (secret=%v topic=%v): %w", secret, topic, err)
	}
	if err := saveNote(fh, note); err != nil {
		return fmt.Errorf("deposit succeeded but the note could not be saved (secret=%v topic=%v): %w", secret, topic, err)
	}

	table := newTable(ctx.App.Writer, "Index", "Commitment", "Note")
	table.Append([]string{strconv.FormatUint(note.Path.Index, 10), note.Path.Leaf.String(), ctx.String("note")})
	table.Render()
	return nil
}

func withdraw(ctx *cli.Context) error {
	note, err := readNote(ctx.String("note"))
	if err != nil {
		return err
	}
	client := api.NewClient(ctx.String("server"))
	if err := client.Withdraw(ctx.Context, note); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Withdrawn to account %v.\n", note.Recipient)
	return nil
}

func verify(ctx *cli.Context) error {
	cs, err := suites.FromName(ctx.String("suite"))
	if err != nil {
		return err
	}
	note, err := readNote(ctx.String("note"))
	if err != nil {
		return err
	}
	if note.Path.Leaf != note.Commitment(cs) {
		return fmt.Errorf("note path does not hold the commitment to its secret")
	}
	root := note.Path.ConstructRoot(cs)

	if ctx.IsSet("root") {
		want, err := suites.ParseHash(ctx.String("root"))
		if err != nil {
			return err
		} else if root != want {
			return fmt.Errorf("note leads to root %v, not %v", root, want)
		}
		fmt.Fprintf(ctx.App.Writer, "Note is valid against root %v.\n", root)
		return nil
	}

	client := api.NewClient(ctx.String("server"))
	roots, err := client.Roots(ctx.Context)
	if err != nil {
		return err
	}
	for i, cand := range roots {
		if cand == root {
			fmt.Fprintf(ctx.App.Writer, "Note is valid against root %v (#%v of %v).\n", root, i, len(roots))
			return nil
		}
	}
	return fmt.Errorf("note leads to root %v, which the server has never had", root)
}

func listRoots(ctx *cli.Context) error {
	client := api.NewClient(ctx.String("server"))
	roots, err := client.Roots(ctx.Context)
	if err != nil {
		return err
	}

	table := newTable(ctx.App.Writer, "#", "Root")
	for i, root := range roots {
		table.Append([]string{strconv.Itoa(i), root.String()})
	}
	table.Render()
	return nil
}

func showBalances(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("no accounts given")
	}
	client := api.NewClient(ctx.String("server"))

	table := newTable(ctx.App.Writer, "Account", "Balance")
	for _, arg := range ctx.Args().Slice() {
		account, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account %q: %w", arg, err)
		}
		balance, err := client.Balance(ctx.Context, account)
		if err != nil {
			return err
		}
		table.Append([]string{arg, strconv.FormatUint(balance, 10)})
	}
	table.Render()
	return nil
}
