package store

import (
	"database/sql"
	"fmt"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanRecordRow scans a ResponseRecord from a single sql.Row.
func scanRecordRow(row *sql.Row) (*models.ResponseRecord, error) {
	var r models.ResponseRecord
	var email, name, role, industry, profileURL, eligibility sql.NullString
	var contextStatement, commitment, terminationReason sql.NullString
	var bookingStatus, bookingDate, bookingTime, bookingURL, archetypeName sql.NullString
	err := row.Scan(
		&r.ID, &email, &name, &role, &industry, &profileURL, &eligibility,
		&contextStatement, &commitment, &r.SurveyStatus, &terminationReason,
		&r.QuestionsAnswered, &r.BookingScheduled, &bookingStatus, &bookingDate,
		&bookingTime, &bookingURL, &archetypeName, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Email = email.String
	r.Name = name.String
	r.Role = role.String
	r.Industry = industry.String
	r.ProfileURL = profileURL.String
	r.EligibilityCategory = eligibility.String
	r.ContextStatement = contextStatement.String
	r.Commitment = commitment.String
	r.TerminationReason = terminationReason.String
	r.BookingStatus = bookingStatus.String
	r.BookingDate = bookingDate.String
	r.BookingTime = bookingTime.String
	r.BookingMeetingURL = bookingURL.String
	r.ArchetypeName = archetypeName.String
	return &r, nil
}

// scanBookingRows scans BookingRow entries from a booking query.
func scanBookingRows(rows *sql.Rows) ([]BookingRow, error) {
	var out []BookingRow
	for rows.Next() {
		var b BookingRow
		var email, name, datetime, timezone, platform, meetingURL sql.NullString
		var duration sql.NullInt64
		err := rows.Scan(
			&b.ResponseID, &email, &name, &b.Booking.Date, &b.Booking.Time,
			&datetime, &timezone, &duration, &platform, &meetingURL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking row failed: %w", err)
		}
		b.Email = email.String
		b.Name = name.String
		b.Booking.Datetime = datetime.String
		b.Booking.Timezone = timezone.String
		b.Booking.Duration = int(duration.Int64)
		b.Booking.Platform = platform.String
		b.Booking.MeetingURL = meetingURL.String
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows failed: %w", err)
	}
	return out, nil
}
