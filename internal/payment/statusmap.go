package payment

import (
	"strconv"
	"time"

	"github.com/launchkit/launchkit/internal/model"
)

// Per-vendor subscription status vocabularies, mapped into the canonical
// set. The mapping is total: anything not listed maps to
// model.StatusIncomplete.
var statusTables = map[string]map[string]string{
	model.ProviderStripe: {
		"incomplete":         model.StatusIncomplete,
		"incomplete_expired": model.StatusIncompleteExpired,
		"trialing":           model.StatusTrialing,
		"active":             model.StatusActive,
		"past_due":           model.StatusPastDue,
		"canceled":           model.StatusCanceled,
		"unpaid":             model.StatusUnpaid,
		"paused":             model.StatusPaused,
	},
	model.ProviderPolar: {
		"incomplete":         model.StatusIncomplete,
		"incomplete_expired": model.StatusIncompleteExpired,
		"trialing":           model.StatusTrialing,
		"active":             model.StatusActive,
		"past_due":           model.StatusPastDue,
		"canceled":           model.StatusCanceled,
		"revoked":            model.StatusCanceled,
		"unpaid":             model.StatusUnpaid,
	},
	model.ProviderLemonSqueezy: {
		"on_trial":  model.StatusTrialing,
		"active":    model.StatusActive,
		"paused":    model.StatusPaused,
		"past_due":  model.StatusPastDue,
		"unpaid":    model.StatusUnpaid,
		"cancelled": model.StatusCanceled,
		"expired":   model.StatusIncompleteExpired,
	},
	model.ProviderSolidgate: {
		"active":     model.StatusActive,
		"redemption": model.StatusPastDue,
		"paused":     model.StatusPaused,
		"cancelled":  model.StatusCanceled,
	},
}

// MapStatus converts a vendor subscription status into the canonical
// vocabulary. Total for any input, including unknown providers.
func MapStatus(provider, vendorStatus string) string {
	table := statusTables[provider]
	if table == nil {
		return model.StatusIncomplete
	}
	status, ok := table[vendorStatus]
	if !ok {
		return model.StatusIncomplete
	}
	return status
}

// Logical field → accepted vendor spellings, snake_case and camelCase.
// Order matters: the first present key wins.
var fieldAliases = map[string][]string{
	"id":                {"id"},
	"status":            {"status"},
	"customerId":        {"customer_id", "customerId", "customer"},
	"priceId":           {"price_id", "priceId", "variant_id", "product_id", "plan_id"},
	"currentPeriodEnd":  {"current_period_end", "currentPeriodEnd", "renews_at", "current_period_ends_at"},
	"cancelAtPeriodEnd": {"cancel_at_period_end", "cancelAtPeriodEnd", "cancelled"},
	"cancelAt":          {"cancel_at", "cancelAt", "ends_at"},
	"trialEnd":          {"trial_end", "trialEnd", "trial_ends_at"},
	"paymentIntentId":   {"payment_intent_id", "paymentIntentId", "latest_payment_intent"},
}

// lookupField resolves a logical field against the fresh object first,
// falling back to the previously known object. PATCH responses commonly
// omit unchanged fields; the fallback keeps the mapped view complete.
func lookupField(fresh, prev map[string]any, logical string) (any, bool) {
	aliases := fieldAliases[logical]
	for _, obj := range []map[string]any{fresh, prev} {
		if obj == nil {
			continue
		}
		for _, key := range aliases {
			v, ok := obj[key]
			if ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

// NormalizeTimestamp converts ISO-8601 strings, unix seconds, or unix
// milliseconds into unix seconds. Magnitude below 1e12 means the value is
// already seconds, so re-normalizing a normalized value is a no-op.
func NormalizeTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return 0, false
		}
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed.Unix(), true
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return normalizeEpoch(n), true
	case float64:
		return normalizeEpoch(int64(t)), true
	case int64:
		return normalizeEpoch(t), true
	case int:
		return normalizeEpoch(int64(t)), true
	default:
		return 0, false
	}
}

func normalizeEpoch(n int64) int64 {
	if n >= 1e12 {
		return n / 1000
	}
	return n
}

// MapSubscription converts a vendor subscription object into the canonical
// SubscriptionInfo. fresh is the most recent response; prev, when non-nil,
// backfills fields the fresh object omits.
func MapSubscription(provider string, fresh, prev map[string]any) *model.SubscriptionInfo {
	info := &model.SubscriptionInfo{}

	info.ID = stringField(fresh, prev, "id")
	info.CustomerID = stringField(fresh, prev, "customerId")
	info.PriceID = stringField(fresh, prev, "priceId")
	info.PaymentIntentID = stringField(fresh, prev, "paymentIntentId")
	info.Status = MapStatus(provider, stringField(fresh, prev, "status"))

	v, ok := lookupField(fresh, prev, "cancelAtPeriodEnd")
	if ok {
		b, isBool := v.(bool)
		info.CancelAtPeriodEnd = isBool && b
	}

	info.CurrentPeriodEnd = timestampField(fresh, prev, "currentPeriodEnd")
	info.CancelAt = timestampField(fresh, prev, "cancelAt")
	info.TrialEnd = timestampField(fresh, prev, "trialEnd")

	return info
}

func stringField(fresh, prev map[string]any, logical string) string {
	v, ok := lookupField(fresh, prev, logical)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Some vendors (LemonSqueezy) send numeric ids.
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case map[string]any:
		// Expanded objects (e.g. Stripe "customer") carry their id inline.
		id, _ := s["id"].(string)
		return id
	default:
		return ""
	}
}

func timestampField(fresh, prev map[string]any, logical string) int64 {
	v, ok := lookupField(fresh, prev, logical)
	if !ok {
		return 0
	}
	ts, ok := NormalizeTimestamp(v)
	if !ok {
		return 0
	}
	return ts
}
