package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"
)

// The report generator runs on another machine and mails the finished
// artifacts to the bot's mailbox. The ingest loop pulls them in and upserts
// the files table so the resolver can find them.

var ingestMutex sync.Mutex

func setupIngestConn() (*client.Client, error) {
	conn, err := client.DialTLS(config.ImapAddress, nil)
	if err != nil {
		return nil, err
	}
	if err := conn.Login(config.ImapUsername, config.ImapPassword); err != nil {
		return nil, err
	}
	return conn, nil
}

var allowedFileTypes = map[string]bool{
	fileExcel1 + "_latin":    true,
	fileExcel1 + "_cyrillic": true,
	fileExcel2 + "_latin":    true,
	fileExcel2 + "_cyrillic": true,
	fileHTML:                 true,
}

// parseArtifactName decodes the generator's file naming convention:
// <stir>_<taxtype>_<month>_<filetype>[.<ext>], e.g.
// 123456789_daromad_mart_excel1_latin.xlsx.
func parseArtifactName(name string) (stir, taxType, month, fileType string, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.SplitN(base, "_", 4)
	if len(parts) != 4 {
		return "", "", "", "", fmt.Errorf("artifact name %q does not have 4 parts", name)
	}
	stir, taxType, month, fileType = parts[0], parts[1], strings.ToLower(parts[2]), strings.ToLower(parts[3])
	if !stirPattern.MatchString(stir) {
		return "", "", "", "", fmt.Errorf("artifact name %q has a malformed stir", name)
	}
	if !isTaxType(taxType) {
		return "", "", "", "", fmt.Errorf("artifact name %q has an unknown tax type", name)
	}
	if !isMonthToken(month) {
		return "", "", "", "", fmt.Errorf("artifact name %q has an unknown month", name)
	}
	if !allowedFileTypes[fileType] {
		return "", "", "", "", fmt.Errorf("artifact name %q has an unknown file type", name)
	}
	return stir, taxType, month, fileType, nil
}

// handleArtifactAttachment writes a mailed artifact under the storage dir and
// records it. Attachments that do not follow the naming convention are
// skipped, not failed: the mailbox also sees human mail.
func handleArtifactAttachment(store *Store, fileName string, content []byte) error {
	stir, taxType, month, fileType, err := parseArtifactName(fileName)
	if err != nil {
		logrus.WithError(err).WithField("file", fileName).Info("skipping attachment")
		return nil
	}
	dir := filepath.Join(config.StorageDir, "reports", stir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, filepath.Base(fileName))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return err
	}
	if err := store.SaveFilePath(stir, taxType, month, fileType, path); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"stir": stir, "tax_type": taxType, "month": month, "file_type": fileType, "path": path,
	}).Info("artifact ingested")
	return nil
}

// ingestEntityAttachments walks the multipart attachments of one mail
// message. NextPart hands back a nil entity with a non-EOF error when the
// message is truncated or malformed, so any such error ends the walk for
// this message; attachments ingested before it are kept.
func ingestEntityAttachments(store *Store, entity *message.Entity) error {
	multiPartReader := entity.MultipartReader()
	if multiPartReader == nil {
		return nil
	}
	for {
		e, err := multiPartReader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logrus.WithError(err).Warn("malformed mail part, skipping rest of message")
			return nil
		}
		kind, params, err := e.Header.ContentType()
		if err != nil {
			return err
		}
		if kind == "multipart/alternative" || params["name"] == "" {
			continue
		}
		content, err := io.ReadAll(e.Body)
		if err != nil {
			return err
		}
		if err := handleArtifactAttachment(store, params["name"], content); err != nil {
			return err
		}
	}
}

func doIngestMail(store *Store) error {
	ingestMutex.Lock()
	defer ingestMutex.Unlock()
	logrus.Debug("checking mailbox for artifacts")
	conn, err := setupIngestConn()
	if err != nil {
		return err
	}
	defer conn.Logout()

	mbox, err := conn.Select("INBOX", false)
	if err != nil {
		return err
	}
	if mbox.Messages == 0 {
		return nil
	}
	seqset := new(imap.SeqSet)
	from := uint32(1)
	if mbox.Messages > 10 {
		from = mbox.Messages - 10
	}
	seqset.AddRange(from, mbox.Messages)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, []imap.FetchItem{imap.FetchRFC822, imap.FetchEnvelope}, messages)
	}()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(10 * time.Second):
		return errors.New("timeout fetching mail")
	}
	for msg := range messages {
		logrus.WithField("subject", msg.Envelope.Subject).Debug("mail message")
		for _, p := range msg.Body {
			if p == nil {
				continue
			}
			entity, err := message.Read(p)
			if err != nil {
				return err
			}
			if err := ingestEntityAttachments(store, entity); err != nil {
				return err
			}
		}
		// processed, drop it from the mailbox
		deleteSet := new(imap.SeqSet)
		deleteSet.AddNum(msg.SeqNum)
		flags := []any{imap.DeletedFlag}
		if err := conn.Store(deleteSet, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
			return fmt.Errorf("error deleting message: %v", err)
		}
		if err := conn.Expunge(nil); err != nil {
			return fmt.Errorf("error expunging mailbox: %v", err)
		}
	}
	return nil
}

func runIngestLoop(store *Store) {
	if config.ImapAddress == "" {
		logrus.Info("imap not configured, artifact ingest disabled")
		return
	}
	sleepDuration, err := time.ParseDuration(config.IngestInterval)
	if err != nil || sleepDuration < time.Second {
		logrus.Fatalf("invalid ingest interval: %v", config.IngestInterval)
	}
	for {
		if err := doIngestMail(store); err != nil {
			logrus.WithError(err).Error("checking mailbox")
		}
		time.Sleep(sleepDuration)
	}
}
