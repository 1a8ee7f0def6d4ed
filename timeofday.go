package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay gates the reminder loop: nags only go out after this wall-clock
// time, so nobody gets pinged at night.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var dat any
	if err := json.Unmarshal(b, &dat); err != nil {
		return err
	}
	s, ok := dat.(string)
	if !ok {
		return fmt.Errorf("invalid time of day format type: %s", string(b))
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time of day format: %s", string(b))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return err
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute: %d", minute)
	}
	t.Hour = hour
	t.Minute = minute
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%s\"", t.String())), nil
}

func (t TimeOfDay) IsTimeAfter(tm time.Time) bool {
	return tm.Hour() > t.Hour || (tm.Hour() == t.Hour && tm.Minute() > t.Minute)
}

func (t TimeOfDay) IsTimeBefore(tm time.Time) bool {
	return tm.Hour() < t.Hour || (tm.Hour() == t.Hour && tm.Minute() < t.Minute)
}
