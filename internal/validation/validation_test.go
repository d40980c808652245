package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const twoGB = int64(2 << 30)

func TestValidateUploadBoundary(t *testing.T) {
	assert.NoError(t, ValidateUpload("movie.mkv", twoGB, twoGB))
	assert.ErrorIs(t, ValidateUpload("movie.mkv", twoGB+1, twoGB), ErrFileTooLarge)
	assert.ErrorIs(t, ValidateUpload("movie.mkv", 0, twoGB), ErrEmptyFile)
	assert.ErrorIs(t, ValidateUpload("", 10, twoGB), ErrFileNameRequired)
	assert.ErrorIs(t, ValidateUpload(strings.Repeat("x", 256), 10, twoGB), ErrFileNameTooLong)
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", CleanFileName("report.pdf"))
	assert.Equal(t, "report.pdf", CleanFileName(`C:\Users\ada\report.pdf`))
	assert.Equal(t, "passwd", CleanFileName("../../etc/passwd"))
	assert.Equal(t, "", CleanFileName("  "))
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage(strings.Repeat("é", 2000)))
	assert.ErrorIs(t, ValidateMessage(strings.Repeat("a", 2001)), ErrMessageTooLong)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrEmailRequired)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("Ada <ada@example.com>"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail(strings.Repeat("a", 250)+"@x.io"), ErrEmailTooLong)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct horse battery"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("é", 40)), ErrPasswordTooLong)
	assert.ErrorIs(t, ValidatePassword("mypassword-is-long"), ErrPasswordCommon)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Ada Lovelace"))
	assert.ErrorIs(t, ValidateName("   "), ErrNameRequired)
	assert.NoError(t, ValidateName(strings.Repeat("ö", 100)))
	assert.ErrorIs(t, ValidateName(strings.Repeat("n", 101)), ErrNameTooLong)
}
