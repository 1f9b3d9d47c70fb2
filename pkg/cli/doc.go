/*
Package cli provides helpers shared by the underwriter commands: output
formatting for decisions and validation reports, a terminal progress bar,
signal handling and exit codes.

Output formatting:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, decision)

Signal handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

SIGHUP triggers a strategy reload in the run command; see ReloadSignals.
*/
package cli
