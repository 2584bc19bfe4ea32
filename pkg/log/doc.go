/*
Package log provides structured logging for drbridge using zerolog.

The package wraps a single global zerolog.Logger. It starts as a no-op logger so
that libraries and tests stay silent until the binary calls Init.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Level comes from the config file and can be raised from the command line:
--trace wins over --debug, which wins over the configured level.

JSON output is meant for log shippers; console output (the default) is meant
for operators tailing the process.

# Component Loggers

Each long-running component takes a child logger once, at construction:

	logger := log.WithComponent("poller")
	logger.Info().Uint64("count", n).Msg("WRB requests count")

Per-request lines use WithRequestID on the component logger so every line about
one data request can be grepped by its ledger index:

	reqLogger := log.WithRequestID(logger, id)
	reqLogger.Debug().Msg("Checking data request in WRB")

# Log Levels

  - trace: every ledger call
  - debug: every data request examined by the poller
  - info:  new data requests, cycle summaries, lifecycle events
  - warn:  aborted cycles, dropped upserts
  - error: ledger node unreachable, store failures
*/
package log
