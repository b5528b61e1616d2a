package report

// ReportVerbose displays a tagged progress message about the lowering process.
// It is only displayed if the log level is verbose.
func ReportVerbose(tag, message string) {
	if rep.logLevel == LogLevelVerbose {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayInfo(tag, message)
	}
}
