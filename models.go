package main

import (
	"gorm.io/gorm"
)

// Tax categories, in the fixed order they are presented to users.
const (
	taxDaromad = "daromad"
	taxYagona  = "yagona"
	taxQQS     = "qqs"
)

var knownTaxTypes = []string{taxDaromad, taxYagona, taxQQS}

func isTaxType(s string) bool {
	for _, t := range knownTaxTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Artifact variants stored in the files table. excel1/excel2 carry a
// _latin/_cyrillic suffix, the html summary page does not.
const (
	fileExcel1 = "excel1"
	fileExcel2 = "excel2"
	fileHTML   = "html"
)

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex"`
	Language   string
}

type Firm struct {
	gorm.Model
	STIR     string `gorm:"uniqueIndex;size:9"`
	Name     string
	Director string
	// Hyphen-joined subset of the known tax types, e.g. "daromad-yagona".
	TaxTypes string
	DSRate   string
	YSRate   string
	QQSRate  string
}

// ManualReport is the withholding (daromad) filing entered by hand in the
// admin flow. EmployeeData holds the itemized one-line-per-employee listing.
type ManualReport struct {
	gorm.Model
	STIR          string `gorm:"index"`
	Month         string
	FirmName      string
	EmployeeCount int
	EmployeeData  string
	PeriodPayroll int64
	TotalPayroll  int64
	Tax           int64
}

type YagonaReport struct {
	gorm.Model
	STIR          string `gorm:"index"`
	Month         string
	FirmName      string
	Director      string
	TaxType       string
	YTDTurnover   int64
	MonthTurnover int64
	Tax           int64
}

type QQSReport struct {
	gorm.Model
	STIR        string `gorm:"index"`
	Month       string
	FirmName    string
	Director    string
	TaxType     string
	YTDAmount   int64
	MonthAmount int64
	Tax         int64
}

// ReportFile points at a generated artifact on disk. The report generator
// upserts on (STIR, TaxType, Month, FileType); Month is stored lower-cased.
type ReportFile struct {
	gorm.Model
	STIR     string `gorm:"index:idx_report_file,unique"`
	TaxType  string `gorm:"index:idx_report_file,unique"`
	Month    string `gorm:"index:idx_report_file,unique"`
	FileType string `gorm:"index:idx_report_file,unique"`
	FilePath string
}

// ReminderChat is a chat that opted into monthly filing reminders.
type ReminderChat struct {
	gorm.Model
	TelegramChatID    int64 `gorm:"uniqueIndex"`
	LastNotifiedMonth string
}

func allModels() []any {
	return []any{
		&User{}, &Firm{}, &ManualReport{}, &YagonaReport{},
		&QQSReport{}, &ReportFile{}, &ReminderChat{},
	}
}
