package leads

import (
	"strings"
	"time"

	"crmdesk/internal/domain"
	"crmdesk/internal/models"
)

// Bucket is a follow-up report. The backend computes bucket membership; each
// bucket is fetched as its own named query.
type Bucket string

const (
	BucketNone     Bucket = ""
	BucketPending  Bucket = "pending"
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
)

const NotAvailable = "N/A"

var bucketTags = map[Bucket]string{
	BucketPending:  domain.TagPendingFollow,
	BucketToday:    domain.TagTodayFollow,
	BucketTomorrow: domain.TagTomorrowFollow,
}

// Buckets returns the follow-up reports in display order.
func Buckets() []Bucket {
	return []Bucket{BucketPending, BucketToday, BucketTomorrow}
}

// ParseBucket parses a bucket name as used in routes.
func ParseBucket(name string) (Bucket, bool) {
	b := Bucket(strings.ToLower(strings.TrimSpace(name)))
	_, ok := bucketTags[b]
	return b, ok
}

// Tag returns the backend report tag for the bucket.
func (b Bucket) Tag() string { return bucketTags[b] }

// IsFollowUpTag reports whether tag names one of the follow-up reports.
func IsFollowUpTag(tag string) bool {
	for _, t := range bucketTags {
		if t == tag {
			return true
		}
	}
	return false
}

// followUpDay parses the stored follow-up date in loc. Date-time values are
// cut to their date part. ok is false for null, empty or malformed values.
func followUpDay(l models.Lead, loc *time.Location) (time.Time, bool) {
	if l.FollowUpDate == nil {
		return time.Time{}, false
	}
	v := strings.TrimSpace(*l.FollowUpDate)
	if len(v) > len(DateLayout) {
		v = v[:len(DateLayout)]
	}
	if v == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Classify places a lead in a follow-up bucket relative to now: pending for
// past dates, today, tomorrow. Leads that are not Intrested, have no usable
// date, or are scheduled later than tomorrow get BucketNone.
func Classify(l models.Lead, now time.Time) Bucket {
	if !IsInterested(l.Status) {
		return BucketNone
	}
	day, ok := followUpDay(l, now.Location())
	if !ok {
		return BucketNone
	}
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	switch {
	case day.Before(today):
		return BucketPending
	case day.Equal(today):
		return BucketToday
	case day.Equal(tomorrow):
		return BucketTomorrow
	}
	return BucketNone
}

// Partition groups leads by bucket. Leads in BucketNone are left out.
func Partition(list []models.Lead, now time.Time) map[Bucket][]models.Lead {
	out := make(map[Bucket][]models.Lead, len(bucketTags))
	for _, l := range list {
		b := Classify(l, now)
		if b == BucketNone {
			continue
		}
		out[b] = append(out[b], l)
	}
	return out
}

// CanAppearInFollowUps reports whether a row returned for a follow-up report
// is plausible. Only Intrested leads qualify; the date itself is the
// backend's call.
func CanAppearInFollowUps(l models.Lead) bool {
	return IsInterested(l.Status)
}

// FollowUpDisplay returns the follow-up date and time as shown in tables.
// Both read "N/A" unless the lead is Intrested and the value is present.
func FollowUpDisplay(l models.Lead) (date, clock string) {
	date, clock = NotAvailable, NotAvailable
	if !IsInterested(l.Status) {
		return date, clock
	}
	if l.FollowUpDate != nil && strings.TrimSpace(*l.FollowUpDate) != "" {
		date = strings.TrimSpace(*l.FollowUpDate)
	}
	if l.FollowUpTime != nil && strings.TrimSpace(*l.FollowUpTime) != "" {
		clock = strings.TrimSpace(*l.FollowUpTime)
		if t, err := normalizeTime(clock); err == nil {
			clock = t
		}
	}
	return date, clock
}
