/*
Package templator replaces $VAR and ${VAR} placeholders in text files with
values taken from an ordered list of sources.

Sources are tried in order, the first one has the highest precedence:

  - explicit key=value pairs (ParsePairs)
  - input files in .env, .json or .yaml format (ReadInputFile)
  - the process environment (EnvSource)

Substitution follows these rules:

  - $$         is an escape and is replaced with a single "$".
  - $NAME      is replaced with the value of NAME. NAME starts with a letter
    or underscore followed by letters, digits or underscores.
  - ${NAME}    is equivalent to $NAME and is required when identifier
    characters follow the placeholder, e.g. "${noun}ification".

Unknown placeholders are left untouched. Each source runs its own pass over
the output of the previous one, so a value inserted by an earlier source may
itself be substituted by a later source.

Example usage:

	src := templator.NewSource("--set")
	_ = src.Add("NAME", "World")

	out, unresolved := templator.Resolve("Hello $NAME, env=$HOME", templator.SourceList{src})
	// out == "Hello World, env=$HOME", unresolved == []string{"$HOME"}
*/
package templator

import "strings"

/*
Resolve substitutes placeholders in text using every source in order and
returns the result together with the placeholders that are still present
afterwards.

Each non-empty source performs a separate safe substitution pass over the
result of the previous pass. Empty sources are skipped entirely, so a text
resolved against an empty list is returned unchanged, escapes included.
*/
func Resolve(text string, sources SourceList) (string, []string) {
	for _, src := range sources {
		if src.Len() == 0 {
			continue
		}

		text = Substitute(text, src)
	}

	return text, FindPlaceholders(text)
}

// Substitute performs a single safe substitution pass with src.
// Placeholders whose name is not in src are kept verbatim and "$$" collapses to "$".
func Substitute(text string, src *Source) string {
	var b strings.Builder
	b.Grow(len(text))

	// text[last:i] is pending output that has not been copied yet
	last := 0
	for i := 0; i < len(text); {
		if text[i] != '$' {
			i++
			continue
		}

		if isEscape(text, i) {
			b.WriteString(text[last : i+1])
			i += 2
			last = i
			continue
		}

		name, end, ok := placeholderAt(text, i)
		if !ok {
			i++
			continue
		}

		if value, found := src.Lookup(name); found {
			b.WriteString(text[last:i])
			b.WriteString(value)
			last = end
		}
		i = end
	}
	b.WriteString(text[last:])

	return b.String()
}
