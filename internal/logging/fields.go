package logging

import "log/slog"

// Attribute keys rendered as the build context prefix.
const (
	KeyRecipe  = "recipe"
	KeyArch    = "arch"
	KeyPackage = "package"
)

// Other canonical attribute keys.
const (
	KeyPath  = "path"
	KeyURL   = "url"
	KeySize  = "size"
	KeyError = "error"
	KeyStage = "stage"
)

func Recipe(name string) slog.Attr  { return slog.String(KeyRecipe, name) }
func Arch(name string) slog.Attr    { return slog.String(KeyArch, name) }
func Package(name string) slog.Attr { return slog.String(KeyPackage, name) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr        { return slog.String(KeyURL, u) }
func Size(s string) slog.Attr       { return slog.String(KeySize, s) }
func Stage(s string) slog.Attr      { return slog.String(KeyStage, s) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
