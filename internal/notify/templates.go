package notify

import (
	"bytes"
	"errors"
	"html/template"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/techmall/storefront-api/internal/domain"
)

const (
	subjectOrderConfirmed = "Order Confirmed - TechMall PK"
	subjectOrderShipped   = "Order Shipped - TechMall PK"
)

var (
	confirmedTemplate = template.Must(template.New("confirmed").Parse(`<h1>Order Confirmation</h1>
<p>Order ID: {{.OrderID}}</p>
<p>Total: {{.Total}}</p>
<p>Status: {{.Status}}</p>
<p>Thank you for shopping with TechMall PK!</p>
`))

	shippedTemplate = template.Must(template.New("shipped").Parse(`<h1>Order Shipped!</h1>
<p>Dear {{.Customer}},</p>
<p>Your order <strong>{{.OrderID}}</strong> has been shipped via <strong>{{.Courier}}</strong>.</p>
<p>Tracking ID: {{.TrackingID}}</p>
<p>Track here: <a href="{{.TrackingURL}}">Track Order</a></p>
`))
)

// Renderer builds the customer emails for order events.
type Renderer struct {
	from            string
	trackingURLBase string
	policy          *bluemonday.Policy
	printer         *message.Printer
}

// NewRenderer returns a Renderer. trackingURLBase receives the tracking id appended,
// query-escaped.
func NewRenderer(from, trackingURLBase string) (*Renderer, error) {
	if strings.TrimSpace(trackingURLBase) == "" {
		return nil, errors.New("notify: tracking url base is required")
	}
	return &Renderer{
		from:            strings.TrimSpace(from),
		trackingURLBase: strings.TrimSpace(trackingURLBase),
		policy:          bluemonday.StrictPolicy(),
		printer:         message.NewPrinter(language.English),
	}, nil
}

// OrderConfirmed renders the confirmation sent after checkout.
func (r *Renderer) OrderConfirmed(order domain.Order) (Email, error) {
	var buf bytes.Buffer
	err := confirmedTemplate.Execute(&buf, map[string]string{
		"OrderID": order.ID,
		"Total":   r.FormatAmount(order.TotalPrice),
		"Status":  string(order.Status),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{
		Kind:    KindOrderConfirmed,
		OrderID: order.ID,
		From:    r.from,
		To:      order.Customer.Email,
		Subject: subjectOrderConfirmed,
		HTML:    buf.String(),
	}, nil
}

// OrderShipped renders the shipment notice with the courier tracking link.
func (r *Renderer) OrderShipped(order domain.Order) (Email, error) {
	var buf bytes.Buffer
	err := shippedTemplate.Execute(&buf, map[string]any{
		"Customer":    r.clean(order.Customer.Name),
		"OrderID":     order.ID,
		"Courier":     r.clean(order.CourierInfo.CourierName),
		"TrackingID":  r.clean(order.CourierInfo.TrackingID),
		"TrackingURL": r.TrackingURL(order.CourierInfo.TrackingID),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{
		Kind:    KindOrderShipped,
		OrderID: order.ID,
		From:    r.from,
		To:      order.Customer.Email,
		Subject: subjectOrderShipped,
		HTML:    buf.String(),
	}, nil
}

// TrackingURL joins the courier tracking base with the escaped tracking id.
func (r *Renderer) TrackingURL(trackingID string) string {
	return r.trackingURLBase + url.QueryEscape(strings.TrimSpace(trackingID))
}

// FormatAmount renders whole rupees with thousands separators, e.g. "PKR 12,500".
func (r *Renderer) FormatAmount(amount int64) string {
	return r.printer.Sprintf("%s %d", domain.Currency, amount)
}

// clean strips markup from customer or admin supplied text. The policy output is already
// escaped, so it is passed to the template as HTML.
func (r *Renderer) clean(value string) template.HTML {
	return template.HTML(strings.TrimSpace(r.policy.Sanitize(value)))
}
