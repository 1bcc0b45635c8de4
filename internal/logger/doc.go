// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console or JSON encoder,
//   - context helpers (ToContext/FromContext/WithName/WithFields/WithLogLevel),
//   - level configuration and parsing utilities,
//   - convenience functions (Info, InfoKV, ErrorKV, etc.).
//
// All services accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase.
package logger
