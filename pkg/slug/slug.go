package slug

import (
	"path"
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Latin letters with diacritics commonly seen in artisan shop names.
	transliterator = strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
		"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
		"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u", "ý", "y", "ÿ", "y",
		"ğ", "g", "ş", "s", "ß", "ss", "æ", "ae", "œ", "oe",
	)
)

// Generate creates a URL and object-key friendly slug.
//
//	"Blue Vase"        -> "blue-vase"
//	"Café Crème!"      -> "cafe-creme"
//	"  Hand  Woven  "  -> "hand-woven"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = transliterator.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FileName slugs the base of a file name and keeps its extension, so
// "My Photo (1).JPG" becomes "my-photo-1.jpg". An empty base falls back to
// "file".
func FileName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	base := Generate(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	ext = "." + Generate(strings.TrimPrefix(ext, "."))
	if ext == "." {
		return base
	}
	return base + ext
}
