package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviousMonthToken(t *testing.T) {
	assert.Equal(t, "mart", previousMonthToken(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "dekabr", previousMonthToken(time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "iyun", previousMonthToken(time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)))
}

func TestDoSendRemindersNagsOncePerMonth(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Firma"}))
	require.NoError(t, store.SubscribeChat(10))

	prevAfter := config.ReminderAfter
	config.ReminderAfter = TimeOfDay{Hour: 9}
	defer func() { config.ReminderAfter = prevAfter }()

	bot := &fakeBot{}
	noon := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)

	doSendReminders(store, bot, noon)
	require.Len(t, bot.sent, 1)
	assert.True(t, containsText(bot.sentTexts(), "Mart"))

	// already notified for this month, no second nag
	doSendReminders(store, bot, noon)
	assert.Len(t, bot.sent, 1)
}

func TestDoSendRemindersRespectsTimeOfDay(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Firma"}))
	require.NoError(t, store.SubscribeChat(10))

	prevAfter := config.ReminderAfter
	config.ReminderAfter = TimeOfDay{Hour: 9}
	defer func() { config.ReminderAfter = prevAfter }()

	bot := &fakeBot{}
	earlyMorning := time.Date(2025, time.April, 10, 6, 0, 0, 0, time.UTC)
	doSendReminders(store, bot, earlyMorning)
	assert.Empty(t, bot.sent)
}

func TestDoSendRemindersRespectsQuietHours(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Firma"}))
	require.NoError(t, store.SubscribeChat(10))

	prevAfter, prevBefore := config.ReminderAfter, config.ReminderBefore
	config.ReminderAfter = TimeOfDay{Hour: 9}
	config.ReminderBefore = TimeOfDay{Hour: 21}
	defer func() { config.ReminderAfter, config.ReminderBefore = prevAfter, prevBefore }()

	bot := &fakeBot{}
	lateEvening := time.Date(2025, time.April, 10, 22, 0, 0, 0, time.UTC)
	doSendReminders(store, bot, lateEvening)
	assert.Empty(t, bot.sent, "no nags after the quiet-hours bound")

	noon := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	doSendReminders(store, bot, noon)
	assert.Len(t, bot.sent, 1)
}

func TestDoSendRemindersSkipsWhenAllFiled(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddFirm(&Firm{STIR: "123456789", Name: "Firma"}))
	require.NoError(t, store.SaveYagonaReport(&YagonaReport{STIR: "123456789", Month: "mart"}))
	require.NoError(t, store.SubscribeChat(10))

	prevAfter := config.ReminderAfter
	config.ReminderAfter = TimeOfDay{Hour: 9}
	defer func() { config.ReminderAfter = prevAfter }()

	bot := &fakeBot{}
	noon := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	doSendReminders(store, bot, noon)
	assert.Empty(t, bot.sent)
}
