package middleware

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

type ETagGenerator struct{}

func NewETagGenerator() *ETagGenerator {
	return &ETagGenerator{}
}

// Generate returns a strong, unquoted tag for content.
func (g *ETagGenerator) Generate(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func (g *ETagGenerator) GenerateWeak(content []byte) string {
	return "W/" + formatETag(g.Generate(content))
}
