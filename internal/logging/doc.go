// Package logging builds the slog handlers used by the command line.
//
// The text handler renders build-context attributes as a message prefix so
// that every line emitted while building a package reads
//
//	[   INFO] recipe [arch] (package): message key=value
//
// Context attributes are attached with [Recipe], [Arch] and [Package] through
// [slog.Logger.With]; any other attribute is rendered after the message. The
// JSON handler keeps them as ordinary fields.
//
// Example usage:
//
//	level := new(slog.LevelVar)
//	logger := logging.New(logging.FormatText, os.Stderr, level, false)
//	logger.With(logging.Recipe("toltec-base"), logging.Arch("rm2")).
//	    Info("building artifacts")
package logging
