package payment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/launchkit/launchkit/internal/model"
)

// CheckoutLister is implemented by providers that expose a checkout/
// subscription list read model. Only LemonSqueezy does today; callers
// discover it by type assertion.
type CheckoutLister interface {
	ListCheckouts(ctx context.Context, params CheckoutListParams) (*model.CheckoutListResult, error)
}

type CheckoutListParams struct {
	Status   string // canonical status filter, empty for all
	Page     int
	PageSize int
}

// jsonAPIListDocument is the list envelope: a data array plus the shared
// "included" side-load section.
type jsonAPIListDocument struct {
	Data     []jsonAPIResource `json:"data"`
	Included []jsonAPIResource `json:"included"`
	Meta     struct {
		Page struct {
			CurrentPage int `json:"currentPage"`
			PerPage     int `json:"perPage"`
			LastPage    int `json:"lastPage"`
			Total       int `json:"total"`
		} `json:"page"`
	} `json:"meta"`
}

// ListCheckouts returns the store's subscriptions as normalized checkout
// records. The "included" section is only partially populated depending on
// which related resources the API chose to side-load; every missing
// relationship degrades to a zero value rather than an error.
func (l *LemonSqueezyProvider) ListCheckouts(ctx context.Context, params CheckoutListParams) (*model.CheckoutListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := url.Values{}
	query.Set("filter[store_id]", l.cfg.LemonSqueezyStoreID)
	query.Set("page[number]", strconv.Itoa(page))
	query.Set("page[size]", strconv.Itoa(pageSize))
	query.Set("include", "order,variant,customer")

	var doc jsonAPIListDocument
	err := l.rest.get(ctx, "/v1/subscriptions?"+query.Encode(), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to list lemonsqueezy subscriptions: %w", err)
	}

	included := indexIncluded(doc.Included)

	items := make([]model.CheckoutData, 0, len(doc.Data))
	for i := range doc.Data {
		item := normalizeCheckout(&doc.Data[i], included)
		if params.Status != "" && item.Status != params.Status {
			continue
		}
		items = append(items, item)
	}

	return &model.CheckoutListResult{
		Items:      items,
		Page:       doc.Meta.Page.CurrentPage,
		PageSize:   doc.Meta.Page.PerPage,
		TotalItems: doc.Meta.Page.Total,
		TotalPages: doc.Meta.Page.LastPage,
	}, nil
}

func indexIncluded(included []jsonAPIResource) map[string]*jsonAPIResource {
	index := make(map[string]*jsonAPIResource, len(included))
	for i := range included {
		res := &included[i]
		index[res.Type+":"+res.ID] = res
	}
	return index
}

// normalizeCheckout maps one subscription resource plus whatever related
// resources were side-loaded into a CheckoutData. Amounts arrive in minor
// units and are divided by 100 here and nowhere else.
func normalizeCheckout(res *jsonAPIResource, included map[string]*jsonAPIResource) model.CheckoutData {
	attrs := res.Attributes

	vendorStatus, _ := attrs["status"].(string)
	item := model.CheckoutData{
		ID:     res.ID,
		Status: MapStatus(model.ProviderLemonSqueezy, vendorStatus),
	}

	if v, ok := attrs["customer_id"]; ok {
		item.CustomerID = numericID(v)
	}
	if v, ok := attrs["user_email"].(string); ok {
		item.CustomerEmail = v
	}
	if v, ok := attrs["store_id"]; ok {
		item.StoreID = numericID(v)
	}
	if v, ok := attrs["order_id"]; ok {
		item.OrderID = numericID(v)
	}
	if v, ok := attrs["variant_id"]; ok {
		item.VariantID = numericID(v)
	}
	if v, ok := attrs["product_name"].(string); ok {
		item.ProductName = v
	}
	if v, ok := attrs["renews_at"]; ok {
		if ts, valid := NormalizeTimestamp(v); valid {
			item.RenewsAt = ts
		}
	}
	if v, ok := attrs["created_at"]; ok {
		if ts, valid := NormalizeTimestamp(v); valid {
			item.CreatedAt = ts
		}
	}
	if urls, ok := attrs["urls"].(map[string]any); ok {
		item.PortalURL, _ = urls["customer_portal"].(string)
	}

	// Amount lives on the related order. A list response without the order
	// side-loaded leaves the amount at zero; it never errors.
	if order := relatedResource(res, included, "order", "orders"); order != nil {
		if total, ok := order.Attributes["total"].(float64); ok {
			item.Amount = total / 100
		}
		if currency, ok := order.Attributes["currency"].(string); ok {
			item.Currency = currency
		}
	}
	if item.VariantID == "" {
		if variant := relatedResource(res, included, "variant", "variants"); variant != nil {
			item.VariantID = variant.ID
		}
	}

	return item
}

// relatedResource walks a relationship to its included resource, returning
// nil when the relationship or the side-loaded data is absent.
func relatedResource(res *jsonAPIResource, included map[string]*jsonAPIResource, relName, resType string) *jsonAPIResource {
	rel, ok := res.Relationships[relName]
	if !ok || rel.Data == nil {
		return nil
	}
	return included[resType+":"+rel.Data.ID]
}

func numericID(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case string:
		return n
	default:
		return ""
	}
}
