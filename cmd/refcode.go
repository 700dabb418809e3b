package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pullstream/schemaguard/internal/fieldstore"
	"github.com/pullstream/schemaguard/internal/lock"
	"github.com/pullstream/schemaguard/internal/refcode"
)

var refcodeCmd = &cobra.Command{
	Use:   "refcode <tenant> <prefix>",
	Short: "Allocate the next reference code for a tenant",
	Long: `Refcode allocates the next sequential human-readable code, such as
LEAD-00042, from the counter stored in the metadata database. Allocation is
serialized through an advisory lock so concurrent callers never collide.`,
	Args: cobra.ExactArgs(2),
	Run:  runRefcode,
}

func init() {
	rootCmd.AddCommand(refcodeCmd)
}

func runRefcode(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cmd)
	if err != nil {
		exitWithError(err)
	}
	defer rt.close()

	ctx := cmd.Context()

	fields, err := fieldstore.Open(rt.env.DatabaseURL, rt.logger)
	if err != nil {
		exitWithError(err)
	}
	defer func() { _ = fields.Close() }()

	locks := lock.New(fields.DB(), rt.logger)
	if err := locks.EnsureSchema(ctx); err != nil {
		exitWithError(err)
	}

	allocator := refcode.New(fields.DB(), locks, rt.logger)
	if err := allocator.EnsureSchema(ctx); err != nil {
		exitWithError(err)
	}

	code, err := allocator.Next(ctx, args[0], args[1])
	if err != nil {
		exitWithError(err)
	}
	fmt.Println(code)
}
