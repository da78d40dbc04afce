/*
Package cli provides command-line helpers for the sdrfcheck command.

Output Formatting:

Validation reports and history listings can be printed as text, JSON or
TSV:

	formatter, err := cli.NewFormatter(cli.FormatTSV)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, rep); err != nil {
		return err
	}

Exit Codes:

Commands return an *ExitError to choose the process exit code; ExitCode
maps any error to 0 (success), 1 (invalid table) or 2 (fatal).

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
