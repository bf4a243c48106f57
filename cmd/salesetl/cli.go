package main

import "flag"

var (
	flagConfigFile string
	flagLogLevel   string
	flagLogDate    bool
	flagMetricsAddr string
)

func cliInit() {
	flag.StringVar(&flagConfigFile, "config", "./pipeline.ini", "Path to the pipeline `configuration` file")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, notice, warn, err, crit]`")
	flag.BoolVar(&flagLogDate, "logdate", false, "Set this flag to add date and time to log messages")
	flag.StringVar(&flagMetricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics at this `address` (e.g. :9090)")
	flag.Parse()
}
