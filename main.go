package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gorm.io/driver/sqlite" // Sqlite driver based on GGO

	"gorm.io/gorm"
)

var bot *tgbotapi.BotAPI
var db *gorm.DB
var store *Store

func openStore() (*Store, error) {
	if config.StorageDir == "" {
		return nil, errors.New("storage_dir is not set (SOLIQ_BOT_STORAGE_DIR)")
	}
	os.MkdirAll(config.StorageDir, 0o755)
	var err error
	db, err = gorm.Open(sqlite.Open(filepath.Join(config.StorageDir, "soliq-bot.db")), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	store = NewStore(db)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func runBot() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if config.TelegramToken == "" {
		return errors.New("telegram_token is not set (SOLIQ_BOT_TOKEN)")
	}
	bot, err = tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	logrus.WithField("account", bot.Self.UserName).Info("authorized")

	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Botni ishga tushirish va tilni tanlash"},
		{Command: "search_firma", Description: "STIR bo'yicha firma qidirish"},
		{Command: "translate_latin", Description: "Kirill matnni lotinga o'girish"},
		{Command: "translate_cyrillic", Description: "Lotin matnni kirillga o'girish"},
		{Command: "reminders", Description: "Oylik hisobot eslatmalari"},
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	go runIngestLoop(store)
	go runRemindersLoop(store, bot)

	controller := NewController(store, NewSessionStore(defaultSessionTTL), NewResolver(store, bot), bot)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	for update := range bot.GetUpdatesChan(u) {
		controller.HandleUpdate(update)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "soliq-bot",
		Short: "Telegram bot that hands out monthly tax report files for registered firms",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := loadConfig(); err != nil {
				logrus.Fatalf("failed to load config: %v", err)
			}
			configureLogging()
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot and its background loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}

	var firm Firm
	addFirmCmd := &cobra.Command{
		Use:   "addfirm",
		Short: "Register a firm (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stirPattern.MatchString(firm.STIR) {
				return fmt.Errorf("stir must be exactly 9 digits, got %q", firm.STIR)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.AddFirm(&firm); err != nil {
				return err
			}
			fmt.Printf("firm %s (%s) added\n", firm.Name, firm.STIR)
			return nil
		},
	}
	addFirmCmd.Flags().StringVar(&firm.STIR, "stir", "", "9-digit taxpayer identifier")
	addFirmCmd.Flags().StringVar(&firm.Name, "name", "", "firm display name")
	addFirmCmd.Flags().StringVar(&firm.Director, "director", "", "director name")
	addFirmCmd.Flags().StringVar(&firm.TaxTypes, "tax-types", "", "hyphen-joined categories, e.g. daromad-yagona")
	addFirmCmd.Flags().StringVar(&firm.DSRate, "ds-rate", "", "withholding rate")
	addFirmCmd.Flags().StringVar(&firm.YSRate, "ys-rate", "", "yagona rate")
	addFirmCmd.Flags().StringVar(&firm.QQSRate, "qqs-rate", "", "QQS rate")
	addFirmCmd.MarkFlagRequired("stir")
	addFirmCmd.MarkFlagRequired("name")

	var fileSTIR, fileTaxType, fileMonth, fileType, filePath string
	setFileCmd := &cobra.Command{
		Use:   "setfile",
		Short: "Register a generated report artifact (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stirPattern.MatchString(fileSTIR) {
				return fmt.Errorf("stir must be exactly 9 digits, got %q", fileSTIR)
			}
			if !isTaxType(fileTaxType) {
				return fmt.Errorf("unknown tax type %q", fileTaxType)
			}
			if !isMonthToken(fileMonth) {
				return fmt.Errorf("unknown month %q", fileMonth)
			}
			if !allowedFileTypes[fileType] {
				return fmt.Errorf("unknown file type %q", fileType)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			return store.SaveFilePath(fileSTIR, fileTaxType, fileMonth, fileType, filePath)
		},
	}
	setFileCmd.Flags().StringVar(&fileSTIR, "stir", "", "9-digit taxpayer identifier")
	setFileCmd.Flags().StringVar(&fileTaxType, "tax-type", "", "daromad, yagona or qqs")
	setFileCmd.Flags().StringVar(&fileMonth, "month", "", "month token, e.g. mart")
	setFileCmd.Flags().StringVar(&fileType, "file-type", "", "excel1_latin, excel1_cyrillic, excel2_latin, excel2_cyrillic or html")
	setFileCmd.Flags().StringVar(&filePath, "path", "", "path to the artifact on disk")
	for _, name := range []string{"stir", "tax-type", "month", "file-type", "path"} {
		setFileCmd.MarkFlagRequired(name)
	}

	var rep struct {
		stir, taxType, month, firmName, director, regimeLabel string
		ytd, monthAmount, tax                                 int64
		periodPayroll, totalPayroll                           int64
		employeeCount                                         int
		employeeData                                          string
	}
	addReportCmd := &cobra.Command{
		Use:   "addreport",
		Short: "Insert a monthly filing row (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stirPattern.MatchString(rep.stir) {
				return fmt.Errorf("stir must be exactly 9 digits, got %q", rep.stir)
			}
			if !isMonthToken(rep.month) {
				return fmt.Errorf("unknown month %q", rep.month)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if rep.firmName == "" {
				rep.firmName = store.FirmName(rep.stir)
			}
			switch rep.taxType {
			case taxYagona:
				if rep.tax == 0 {
					if firm, ok := store.FirmBySTIR(rep.stir); ok && firm.YSRate != "" {
						rep.tax, err = computeTax(rep.monthAmount, firm.YSRate)
						if err != nil {
							return fmt.Errorf("computing tax from rate: %w", err)
						}
					}
				}
				return store.SaveYagonaReport(&YagonaReport{
					STIR: rep.stir, Month: rep.month, FirmName: rep.firmName,
					Director: rep.director, TaxType: rep.regimeLabel,
					YTDTurnover: rep.ytd, MonthTurnover: rep.monthAmount, Tax: rep.tax,
				})
			case taxQQS:
				if rep.tax == 0 {
					if firm, ok := store.FirmBySTIR(rep.stir); ok && firm.QQSRate != "" {
						rep.tax, err = computeTax(rep.monthAmount, firm.QQSRate)
						if err != nil {
							return fmt.Errorf("computing tax from rate: %w", err)
						}
					}
				}
				return store.SaveQQSReport(&QQSReport{
					STIR: rep.stir, Month: rep.month, FirmName: rep.firmName,
					Director: rep.director, TaxType: rep.regimeLabel,
					YTDAmount: rep.ytd, MonthAmount: rep.monthAmount, Tax: rep.tax,
				})
			case taxDaromad:
				data := rep.employeeData
				if strings.HasPrefix(data, "@") {
					raw, err := os.ReadFile(strings.TrimPrefix(data, "@"))
					if err != nil {
						return err
					}
					data = string(raw)
				}
				return store.SaveManualReport(&ManualReport{
					STIR: rep.stir, Month: rep.month, FirmName: rep.firmName,
					EmployeeCount: rep.employeeCount, EmployeeData: data,
					PeriodPayroll: rep.periodPayroll, TotalPayroll: rep.totalPayroll, Tax: rep.tax,
				})
			default:
				return fmt.Errorf("unknown tax type %q", rep.taxType)
			}
		},
	}
	addReportCmd.Flags().StringVar(&rep.stir, "stir", "", "9-digit taxpayer identifier")
	addReportCmd.Flags().StringVar(&rep.taxType, "tax-type", "", "daromad, yagona or qqs")
	addReportCmd.Flags().StringVar(&rep.month, "month", "", "month token, e.g. mart")
	addReportCmd.Flags().StringVar(&rep.firmName, "firm-name", "", "firm name snapshot (defaults to the stored firm)")
	addReportCmd.Flags().StringVar(&rep.director, "director", "", "director snapshot")
	addReportCmd.Flags().StringVar(&rep.regimeLabel, "regime-label", "", "tax regime label stored on the row")
	addReportCmd.Flags().Int64Var(&rep.ytd, "ytd", 0, "year-to-date amount in som")
	addReportCmd.Flags().Int64Var(&rep.monthAmount, "month-amount", 0, "current month amount in som")
	addReportCmd.Flags().Int64Var(&rep.tax, "tax", 0, "tax in som (computed from the firm rate when omitted)")
	addReportCmd.Flags().IntVar(&rep.employeeCount, "employee-count", 0, "employee count (daromad)")
	addReportCmd.Flags().StringVar(&rep.employeeData, "employee-data", "", "itemized listing, or @file to read from disk (daromad)")
	addReportCmd.Flags().Int64Var(&rep.periodPayroll, "period-payroll", 0, "reporting period payroll in som (daromad)")
	addReportCmd.Flags().Int64Var(&rep.totalPayroll, "total-payroll", 0, "total payroll in som (daromad)")
	for _, name := range []string{"stir", "tax-type", "month"} {
		addReportCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(runCmd, addFirmCmd, setFileCmd, addReportCmd)
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
