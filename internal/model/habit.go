package model

import (
	"sort"
	"time"
)

type HabitStatus string

const (
	HabitActive    HabitStatus = "active"
	HabitCompleted HabitStatus = "completed"
)

func (s HabitStatus) IsValid() bool {
	switch s {
	case HabitActive, HabitCompleted:
		return true
	default:
		return false
	}
}

// Habit is owned by exactly one user. CompletedDates holds unique day keys.
type Habit struct {
	ID              string
	UserID          string
	Name            string
	TargetDays      int
	IsIndefinite    bool
	CompletedDates  []string
	Status          HabitStatus
	CreatedOnDayKey *string
	CreatedAt       time.Time

	Version int64
}

func (h *Habit) Clone() *Habit {
	if h == nil {
		return nil
	}
	c := *h
	c.CompletedDates = append([]string{}, h.CompletedDates...)
	if h.CreatedOnDayKey != nil {
		v := *h.CreatedOnDayKey
		c.CreatedOnDayKey = &v
	}
	return &c
}

func (h *Habit) HasDay(key string) bool {
	for _, d := range h.CompletedDates {
		if d == key {
			return true
		}
	}
	return false
}

// AddDay inserts key if absent, keeping CompletedDates sorted.
func (h *Habit) AddDay(key string) bool {
	if h.HasDay(key) {
		return false
	}
	h.CompletedDates = append(h.CompletedDates, key)
	sort.Strings(h.CompletedDates)
	return true
}

func (h *Habit) RemoveDay(key string) bool {
	for i, d := range h.CompletedDates {
		if d == key {
			h.CompletedDates = append(h.CompletedDates[:i:i], h.CompletedDates[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Habit) IsActive() bool { return h.Status == HabitActive }
