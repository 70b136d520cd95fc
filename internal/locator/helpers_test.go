package locator

import (
	"io"
	"strconv"
	"strings"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func itoa(i int) string { return strconv.Itoa(i) }
