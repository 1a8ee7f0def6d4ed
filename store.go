package main

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps the gorm handle with the bot's access policy: a storage error
// is logged and surfaces to the caller as absence, never as a crash. Nothing
// here retries and no call spans a transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(allModels()...)
}

// UserLanguage returns the stored preference for the user, defaulting to
// uz_latin for unknown users and on storage errors.
func (s *Store) UserLanguage(userID int64) string {
	var user User
	err := s.db.Where("telegram_id = ?", userID).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Error("reading user language")
		}
		return langLatin
	}
	return normalizeLanguage(user.Language)
}

func (s *Store) SetUserLanguage(userID int64, lang string) error {
	lang = normalizeLanguage(lang)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"language"}),
	}).Create(&User{TelegramID: userID, Language: lang}).Error
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "language": lang}).Error("saving user language")
	}
	return err
}

func (s *Store) FirmBySTIR(stir string) (*Firm, bool) {
	var firm Firm
	err := s.db.Where("stir = ?", stir).First(&firm).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("stir", stir).Error("reading firm")
		}
		return nil, false
	}
	return &firm, true
}

func (s *Store) FirmExists(stir string) bool {
	_, ok := s.FirmBySTIR(stir)
	return ok
}

func (s *Store) FirmName(stir string) string {
	firm, ok := s.FirmBySTIR(stir)
	if !ok {
		return "Noma'lum"
	}
	return firm.Name
}

func (s *Store) AddFirm(firm *Firm) error {
	firm.TaxTypes = strings.ToLower(firm.TaxTypes)
	return s.db.Create(firm).Error
}

func (s *Store) AllFirms() []Firm {
	var firms []Firm
	if err := s.db.Find(&firms).Error; err != nil {
		logrus.WithError(err).Error("listing firms")
		return nil
	}
	return firms
}

func (s *Store) ManualReportFor(stir, month string) (*ManualReport, bool) {
	var report ManualReport
	err := s.db.Where("stir = ? AND month = ?", stir, strings.ToLower(month)).First(&report).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"stir": stir, "month": month}).Error("reading manual report")
		}
		return nil, false
	}
	return &report, true
}

func (s *Store) SaveManualReport(report *ManualReport) error {
	report.Month = strings.ToLower(report.Month)
	return s.db.Create(report).Error
}

func (s *Store) YagonaReportFor(stir, month string) (*YagonaReport, bool) {
	var report YagonaReport
	err := s.db.Where("stir = ? AND month = ?", stir, strings.ToLower(month)).First(&report).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"stir": stir, "month": month}).Error("reading yagona report")
		}
		return nil, false
	}
	return &report, true
}

func (s *Store) SaveYagonaReport(report *YagonaReport) error {
	report.Month = strings.ToLower(report.Month)
	return s.db.Create(report).Error
}

func (s *Store) QQSReportFor(stir, month string) (*QQSReport, bool) {
	var report QQSReport
	err := s.db.Where("stir = ? AND month = ?", stir, strings.ToLower(month)).First(&report).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"stir": stir, "month": month}).Error("reading qqs report")
		}
		return nil, false
	}
	return &report, true
}

func (s *Store) SaveQQSReport(report *QQSReport) error {
	report.Month = strings.ToLower(report.Month)
	return s.db.Create(report).Error
}

// FilePath looks up a stored artifact path. The month key is lower-cased on
// both write and read, matching the report generator.
func (s *Store) FilePath(stir, taxType, month, fileType string) (string, bool) {
	var file ReportFile
	err := s.db.Where("stir = ? AND tax_type = ? AND month = ? AND file_type = ?",
		stir, taxType, strings.ToLower(month), fileType).First(&file).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{
				"stir": stir, "tax_type": taxType, "month": month, "file_type": fileType,
			}).Error("reading file path")
		}
		return "", false
	}
	return file.FilePath, true
}

// SaveFilePath upserts the artifact path for its (stir, taxType, month,
// fileType) key; a later write replaces the previous path.
func (s *Store) SaveFilePath(stir, taxType, month, fileType, path string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stir"}, {Name: "tax_type"}, {Name: "month"}, {Name: "file_type"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"file_path"}),
	}).Create(&ReportFile{
		STIR:     stir,
		TaxType:  taxType,
		Month:    strings.ToLower(month),
		FileType: fileType,
		FilePath: path,
	}).Error
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"stir": stir, "tax_type": taxType, "month": month, "file_type": fileType,
		}).Error("saving file path")
	}
	return err
}

func (s *Store) ReminderChats() []ReminderChat {
	var chats []ReminderChat
	if err := s.db.Find(&chats).Error; err != nil {
		logrus.WithError(err).Error("listing reminder chats")
		return nil
	}
	return chats
}

func (s *Store) SubscribeChat(chatID int64) error {
	return s.db.Where("telegram_chat_id = ?", chatID).
		FirstOrCreate(&ReminderChat{TelegramChatID: chatID}).Error
}

func (s *Store) UnsubscribeChat(chatID int64) error {
	return s.db.Where("telegram_chat_id = ?", chatID).Delete(&ReminderChat{}).Error
}

func (s *Store) MarkChatNotified(chatID int64, month string) error {
	return s.db.Model(&ReminderChat{}).
		Where("telegram_chat_id = ?", chatID).
		Update("last_notified_month", strings.ToLower(month)).Error
}

// HasAnyFilingFor reports whether any of the three filing tables has a row
// for the firm and month.
func (s *Store) HasAnyFilingFor(stir, month string) bool {
	if _, ok := s.ManualReportFor(stir, month); ok {
		return true
	}
	if _, ok := s.YagonaReportFor(stir, month); ok {
		return true
	}
	_, ok := s.QQSReportFor(stir, month)
	return ok
}
