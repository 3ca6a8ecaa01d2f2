package infrastructure

import "strings"

// shellMeta lists the characters that make an argument ambiguous when a
// logged command line is pasted back into a shell
const shellMeta = " \t\r\n'\"$`\\!*?[](){}|;<>&~#%"

// QuoteArg renders a single argument for display in a log. exec.Command never
// sees the quoted form.
func QuoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, shellMeta) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// FormatCommandLine renders binary and args as a copy-pastable shell line
func FormatCommandLine(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteArg(binary))
	for _, arg := range args {
		parts = append(parts, QuoteArg(arg))
	}
	return strings.Join(parts, " ")
}
