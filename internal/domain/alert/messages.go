package alert

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
)

const dateLayout = "2006-01-02"

func titleKey(t Type) string   { return "alert.title." + string(t) }
func messageKey(t Type) string { return "alert.message." + string(t) }

func init() {
	shared.RegisterMessage(titleKey(TypeExpired), "Batch expired", "تشغيلة منتهية الصلاحية")
	shared.RegisterMessage(titleKey(TypeExpiryOneWeek), "Expiring within a week", "تنتهي صلاحيتها خلال أسبوع")
	shared.RegisterMessage(titleKey(TypeExpiryTwoWeeks), "Expiring within two weeks", "تنتهي صلاحيتها خلال أسبوعين")
	shared.RegisterMessage(titleKey(TypeExpiryOneMonth), "Expiring within a month", "تنتهي صلاحيتها خلال شهر")
	shared.RegisterMessage(titleKey(TypeExpiryTwoMonths), "Expiring within two months", "تنتهي صلاحيتها خلال شهرين")
	shared.RegisterMessage(titleKey(TypeLowStock), "Low stock", "مخزون منخفض")
	shared.RegisterMessage(titleKey(TypeDamaged), "Damaged stock", "مخزون تالف")

	shared.RegisterMessage(messageKey(TypeExpired),
		"Batch %[1]s expired on %[2]s. %[3]d units were written off.",
		"انتهت صلاحية التشغيلة %[1]s بتاريخ %[2]s. تم شطب %[3]d وحدة.")
	near := []Type{TypeExpiryOneWeek, TypeExpiryTwoWeeks, TypeExpiryOneMonth, TypeExpiryTwoMonths}
	for _, t := range near {
		shared.RegisterMessage(messageKey(t),
			"Batch %[1]s expires on %[2]s, in %[4]d days. %[3]d units remaining.",
			"تنتهي صلاحية التشغيلة %[1]s بتاريخ %[2]s خلال %[4]d يوم. الكمية المتبقية %[3]d وحدة.")
	}
	shared.RegisterMessage(messageKey(TypeLowStock),
		"Batch %[1]s is running low: %[3]d units remaining.",
		"التشغيلة %[1]s على وشك النفاد: الكمية المتبقية %[3]d وحدة.")
	shared.RegisterMessage(messageKey(TypeDamaged),
		"Batch %[1]s was written off as damaged: %[3]d units.",
		"تم شطب التشغيلة %[1]s كتالفة: %[3]d وحدة.")
}

// Render returns the English title and the English and Arabic messages for an alert
func Render(t Type, subject Subject, today time.Time) (title, english, arabic string) {
	expiry := ""
	days := 0
	if !subject.ExpiryDate.IsZero() {
		expiry = shared.Day(subject.ExpiryDate).Format(dateLayout)
		days = shared.DaysBetween(today, subject.ExpiryDate)
	}
	args := []any{subject.BatchNumber, expiry, subject.Remaining, days}

	title = shared.Translate(shared.LangEnglish, titleKey(t))
	english = shared.Translate(shared.LangEnglish, messageKey(t), args...)
	arabic = shared.Translate(shared.LangArabic, messageKey(t), args...)
	return title, english, arabic
}
