// Package format renders sizes, dates and counts for the dashboard and share pages.
package format

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// Bytes formats n with 1024-based units, rounded to at most decimals places.
func Bytes(n int64, decimals int) string {
	if n <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	i := 0
	value := float64(n)
	for value >= 1024 && i < len(byteUnits)-1 {
		value /= 1024
		i++
	}

	scale := math.Pow(10, float64(decimals))
	value = math.Round(value*scale) / scale

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[i]
}

// Size is Bytes with two decimals.
func Size(n int64) string {
	return Bytes(n, 2)
}

func Date(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func DateTime(t time.Time) string {
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// Relative describes t relative to now, e.g. "3 days from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

var printer = message.NewPrinter(language.English)

// Count adds thousands separators.
func Count(n int64) string {
	return printer.Sprintf("%d", n)
}

const (
	CategoryImages    = "Images"
	CategoryDocuments = "Documents"
	CategoryVideos    = "Videos"
	CategoryAudio     = "Audio"
	CategoryArchives  = "Archives"
	CategoryCode      = "Code"
	CategoryOther     = "Other"
)

var categories = map[string][]string{
	CategoryImages:    {"jpg", "jpeg", "png", "gif", "svg", "webp", "bmp", "tiff"},
	CategoryDocuments: {"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "rtf", "odt"},
	CategoryVideos:    {"mp4", "mov", "avi", "wmv", "mkv", "webm"},
	CategoryAudio:     {"mp3", "wav", "ogg", "aac", "m4a"},
	CategoryArchives:  {"zip", "rar", "7z", "tar", "gz"},
	CategoryCode:      {"html", "css", "js", "jsx", "ts", "tsx", "json", "xml", "php", "py", "java", "cpp", "c", "cs"},
}

var categoryByExt = func() map[string]string {
	m := make(map[string]string)
	for category, exts := range categories {
		for _, ext := range exts {
			m[ext] = category
		}
	}
	return m
}()

// FileCategory maps an extension (with or without the dot) to its category.
func FileCategory(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if category, ok := categoryByExt[ext]; ok {
		return category
	}
	return CategoryOther
}

// CategoryOf classifies a file by its name.
func CategoryOf(fileName string) string {
	return FileCategory(filepath.Ext(fileName))
}
