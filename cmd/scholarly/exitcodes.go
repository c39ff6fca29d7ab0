package main

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing project, invalid values)
	ExitDataError     = 3 // Data error (unreadable author files, snapshot)
	ExitAccessBlocked = 4 // Data source refused access (CAPTCHA, 403, 429)
)
