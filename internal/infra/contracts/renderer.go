package contracts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"kloset/internal/app/policies"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
)

const agreementTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Rental Agreement {{.RentalID}}</title></head>
<body>
<h1>Rental Agreement</h1>
<p>Agreement <strong>{{.RentalID}}</strong>, generated {{.GeneratedAt}}.</p>
<h2>Parties</h2>
<ul>
  <li>Owner: {{.OwnerName}}</li>
  <li>Renter: {{.RenterName}}</li>
</ul>
<h2>Item</h2>
<p>{{.ListingTitle}}</p>
<h2>Rental Period</h2>
<p>{{.StartDate}} through {{.EndDate}} ({{.TotalDays}} days, both days inclusive).</p>
<h2>Charges</h2>
<table>
  <tr><td>Daily rate</td><td>{{.DailyRate}}</td></tr>
  <tr><td>Subtotal</td><td>{{.Subtotal}}</td></tr>
  <tr><td>Security deposit</td><td>{{.Deposit}}</td></tr>
  <tr><td>Cleaning fee</td><td>{{.CleaningFee}}</td></tr>
  <tr><td>Service fee</td><td>{{.ServiceFee}}</td></tr>
  <tr><th>Total</th><th>{{.Total}}</th></tr>
</table>
<p>The deposit is returned after the item comes back in its listed condition.</p>
</body>
</html>
`

type agreementData struct {
	RentalID     string
	GeneratedAt  string
	OwnerName    string
	RenterName   string
	ListingTitle string
	StartDate    string
	EndDate      string
	TotalDays    int
	DailyRate    string
	Subtotal     string
	Deposit      string
	CleaningFee  string
	ServiceFee   string
	Total        string
}

// Renderer produces the HTML rental agreement for an accepted rental and
// keeps the rendered documents in memory, keyed by storage path.
type Renderer struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	tmpl   *template.Template
	logger *slog.Logger
	now    func() time.Time
}

func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{
		docs:   make(map[string][]byte),
		tmpl:   template.Must(template.New("agreement").Parse(agreementTemplate)),
		logger: logger,
		now:    time.Now,
	}
}

func (r *Renderer) Render(ctx context.Context, rental *domainrental.Rental, ownerName, renterName, listingTitle string) (string, error) {
	if rental == nil {
		return "", fault.Validation("contracts: rental is required")
	}
	data := agreementData{
		RentalID:     string(rental.ID),
		GeneratedAt:  r.now().UTC().Format(time.RFC3339),
		OwnerName:    ownerName,
		RenterName:   renterName,
		ListingTitle: listingTitle,
		StartDate:    rental.Range.Start.String(),
		EndDate:      rental.Range.End.String(),
		TotalDays:    rental.Cost.TotalDays,
		DailyRate:    rental.Cost.DailyRate.String(),
		Subtotal:     rental.Cost.Subtotal.String(),
		Deposit:      rental.Cost.Deposit.String(),
		CleaningFee:  rental.Cost.CleaningFee.String(),
		ServiceFee:   rental.Cost.ServiceFee.String(),
		Total:        rental.Cost.Total.String(),
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fault.Dependency("contracts: render agreement", err)
	}
	key := fmt.Sprintf("contracts/%s.html", rental.ID)
	r.mu.Lock()
	r.docs[key] = buf.Bytes()
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Info("rental agreement rendered", "rental_id", rental.ID, "key", key, "bytes", buf.Len())
	}
	return key, nil
}

func (r *Renderer) Fetch(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	doc, ok := r.docs[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fault.NotFound(fmt.Sprintf("contracts: document %q not found", key))
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

var _ policies.ContractsPort = (*Renderer)(nil)
