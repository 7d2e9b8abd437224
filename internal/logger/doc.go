// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - context-scoped InfoKV, WarnKV and ErrorKV.
//
// Every step of the merge workflow receives a context and logs through it, so
// the "fwmerge" logger name and any attached fields follow the whole run.
package logger
