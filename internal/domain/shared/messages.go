package shared

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported message languages. The pharmacy prints every user-facing reason in both.
var (
	LangEnglish = language.English
	LangArabic  = language.Arabic
)

var (
	catalogMu sync.RWMutex
	messages  = catalog.NewBuilder(catalog.Fallback(language.English))
)

// RegisterMessage adds a bilingual message template under key.
// Templates use fmt verbs and are rendered with Printer(lang).Sprintf(key, args...).
func RegisterMessage(key, english, arabic string) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	_ = messages.SetString(LangEnglish, key, english)
	_ = messages.SetString(LangArabic, key, arabic)
}

// Printer returns a message printer for the given language backed by the shared catalog
func Printer(lang language.Tag) *message.Printer {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	return message.NewPrinter(lang, message.Catalog(messages))
}

// Translate renders the template registered under key
func Translate(lang language.Tag, key string, args ...any) string {
	return Printer(lang).Sprintf(key, args...)
}

func init() {
	RegisterMessage(string(KindValidation), "Invalid input: %s", "إدخال غير صالح: %s")
	RegisterMessage(string(KindNotFound), "Not found: %s", "غير موجود: %s")
	RegisterMessage(string(KindInsufficientStock), "Insufficient stock: %s", "الكمية غير كافية: %s")
	RegisterMessage(string(KindInvalidTransition), "Operation not allowed in current state: %s", "العملية غير مسموحة في الحالة الحالية: %s")
	RegisterMessage(string(KindReturnTargetAlreadySold), "Cannot return a batch that has sold units: %s", "لا يمكن إرجاع تشغيلة تم بيع وحدات منها: %s")
	RegisterMessage(string(KindCancellationConflict), "Cannot cancel, stock has changed since approval: %s", "لا يمكن الإلغاء، تغير المخزون منذ الاعتماد: %s")
	RegisterMessage(string(KindReconciliation), "Ledger integrity error: %s", "خطأ في سلامة السجل المالي: %s")
}

// LocalizedMessage renders a human-readable reason for err in the given language.
// Non-domain errors render as their plain error text.
func LocalizedMessage(err error, lang language.Tag) string {
	kind := KindOf(err)
	if kind == "" {
		return err.Error()
	}
	return Translate(lang, string(kind), err.Error())
}
