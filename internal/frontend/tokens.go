package frontend

import (
	"fmt"
	"strings"
)

// TokenStream lexes src and renders one token per line with its source
// position, for the CLI's token-stream dump flag.
func TokenStream(src string) (string, error) {
	items, err := lex(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "%d:%d\t%s\n", it.line, it.col, it)
	}
	return sb.String(), nil
}
