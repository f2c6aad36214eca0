/*
Package cli holds the helpers shared by the kyosan commands.

Output formats:

Commands accept --format text|json|csv. Values that know how to render
themselves implement TextWriter and, for CSV, Table:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)

Progress:

Batch commands report progress on stderr:

	progress := cli.NewProgress(cmd.ErrOrStderr(), "evaluating", int64(len(inputs)))
	for range inputs {
		// ...
		progress.Add(1)
	}
	progress.Done()

Signals:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
