package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtifactName(t *testing.T) {
	stir, taxType, month, fileType, err := parseArtifactName("123456789_daromad_mart_excel1_latin.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "123456789", stir)
	assert.Equal(t, taxDaromad, taxType)
	assert.Equal(t, "mart", month)
	assert.Equal(t, "excel1_latin", fileType)

	_, _, month, fileType, err = parseArtifactName("987654321_qqs_MART_html.html")
	require.NoError(t, err)
	assert.Equal(t, "mart", month)
	assert.Equal(t, fileHTML, fileType)
}

func TestParseArtifactNameRejectsGarbage(t *testing.T) {
	bad := []string{
		"invoice.pdf",
		"12345678_daromad_mart_html.html",        // short stir
		"123456789_patent_mart_html.html",        // unknown category
		"123456789_daromad_martobar_html.html",   // unknown month
		"123456789_daromad_mart_excel3.xlsx",     // unknown variant
		"123456789_daromad.xlsx",                 // too few parts
	}
	for _, name := range bad {
		_, _, _, _, err := parseArtifactName(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestHandleArtifactAttachment(t *testing.T) {
	store := newTestStore(t)
	prevStorage := config.StorageDir
	config.StorageDir = t.TempDir()
	defer func() { config.StorageDir = prevStorage }()

	content := []byte("spreadsheet bytes")
	require.NoError(t, handleArtifactAttachment(store, "123456789_yagona_mart_excel1_latin.xlsx", content))

	path, ok := store.FilePath("123456789", taxYagona, "mart", "excel1_latin")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(config.StorageDir, "reports", "123456789", "123456789_yagona_mart_excel1_latin.xlsx"), path)

	// unparseable attachments are skipped, not failed
	require.NoError(t, handleArtifactAttachment(store, "holiday_photos.zip", content))
	_, ok = store.FilePath("123456789", taxYagona, "mart", "excel2_latin")
	assert.False(t, ok)
}

func TestIngestEntityAttachments(t *testing.T) {
	store := newTestStore(t)
	prevStorage := config.StorageDir
	config.StorageDir = t.TempDir()
	defer func() { config.StorageDir = prevStorage }()

	raw := "Content-Type: multipart/mixed; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/octet-stream; name=\"123456789_daromad_mart_html.html\"\r\n" +
		"\r\n" +
		"<html></html>\r\n" +
		"--frontier--\r\n"
	entity, err := message.Read(strings.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, ingestEntityAttachments(store, entity))

	_, ok := store.FilePath("123456789", taxDaromad, "mart", fileHTML)
	assert.True(t, ok)
}

func TestIngestEntityAttachmentsSkipsTruncatedMessage(t *testing.T) {
	store := newTestStore(t)
	prevStorage := config.StorageDir
	config.StorageDir = t.TempDir()
	defer func() { config.StorageDir = prevStorage }()

	// the second part's headers are cut off mid-stream, the way an
	// interrupted IMAP literal arrives
	raw := "Content-Type: multipart/mixed; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/octet-stream; name=\"123456789_daromad_mart_html.html\"\r\n" +
		"\r\n" +
		"<html></html>\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/octet-stream; name=\"123456789_daromad_mart_excel1_latin.xlsx\"\r\n"
	entity, err := message.Read(strings.NewReader(raw))
	require.NoError(t, err)

	require.NotPanics(t, func() {
		assert.NoError(t, ingestEntityAttachments(store, entity))
	})

	// the intact attachment before the truncation point is kept
	_, ok := store.FilePath("123456789", taxDaromad, "mart", fileHTML)
	assert.True(t, ok)
	_, ok = store.FilePath("123456789", taxDaromad, "mart", "excel1_latin")
	assert.False(t, ok)
}

func TestHandleArtifactAttachmentReplacesPath(t *testing.T) {
	store := newTestStore(t)
	prevStorage := config.StorageDir
	config.StorageDir = t.TempDir()
	defer func() { config.StorageDir = prevStorage }()

	require.NoError(t, handleArtifactAttachment(store, "123456789_qqs_may_html.html", []byte("v1")))
	require.NoError(t, handleArtifactAttachment(store, "123456789_qqs_may_html.html", []byte("v2")))

	var count int64
	store.db.Model(&ReportFile{}).Count(&count)
	assert.EqualValues(t, 1, count, "same key upserts")
}
