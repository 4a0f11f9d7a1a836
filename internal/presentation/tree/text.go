package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Text writes an indented outline. Ids are coloured for profile; pass
// termenv.Ascii for plain output.
func Text(w io.Writer, lines []Line, profile termenv.Profile, opts Options) error {
	for _, l := range lines {
		name := profile.String(l.Node.Name)
		if opts.isMatch(l.Node.ID) {
			name = name.Bold().Foreground(profile.Color("#f472b6"))
		}
		id := profile.String("#" + l.Node.ID).Foreground(profile.Color("#818cf8"))
		if _, err := fmt.Fprintf(w, "%s%s %s%s\n", strings.Repeat("  ", l.Depth), name, id, attributes(l.Node)); err != nil {
			return err
		}
	}
	return nil
}
