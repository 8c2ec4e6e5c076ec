// Package letter turns a fully approved request into the printable
// authorisation letter handed to security.
package letter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

const (
	displayDate   = "02-01-2006"
	blankLine     = "_________________"
	unsignedMark  = "(__________________)"
	approvedMark  = "(Approved)"
	noItemsRow    = "No items specified."
	adaptorRow    = "Adaptor & console cable-1"
	adaptorMake   = "Smart Phone"
	toolKitRow    = "Tool kit- 1 set"
	defaultAmount = 1
)

var leadingNumeral = regexp.MustCompile(`^\s*(\d+)`)

// Config holds the fixed wording of the letter
type Config struct {
	Office          string   `mapstructure:"office"`
	Division        string   `mapstructure:"division"`
	DivisionName    string   `mapstructure:"division_name"`
	Site            string   `mapstructure:"site"`
	Host            string   `mapstructure:"host"`
	Addressee       string   `mapstructure:"addressee"`
	TableTitle      string   `mapstructure:"table_title"`
	Note            string   `mapstructure:"note"`
	SignatoryTitles []string `mapstructure:"signatory_titles"`
}

// DefaultConfig returns the wording used by the overhaul division
func DefaultConfig() Config {
	return Config{
		Office:          "OFFICE OF DGM (IT)",
		Division:        "OVERHAUL DIVISION",
		DivisionName:    "Overhaul Division",
		Site:            "HAL(BC)",
		Host:            "HAL",
		Addressee:       "TO CM(SECURITY)-O",
		TableTitle:      "MOBILE & LAPTOP DETAILS",
		Note:            "NOTE: Camera is to be blocked",
		SignatoryTitles: []string{"GM ( O )", "DGM", "SM(IT)"},
	}
}

// Letter is the renderer-agnostic letter document
type Letter struct {
	RequestID  string      `json:"request_id"`
	Office     string      `json:"office"`
	Division   string      `json:"division"`
	Site       string      `json:"site"`
	Date       string      `json:"date"`
	Addressee  string      `json:"addressee"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	TableTitle string      `json:"table_title"`
	Rows       []ItemRow   `json:"rows"`
	Note       string      `json:"note"`
	Signatures []Signature `json:"signatures"`
}

// ItemRow is one line of the item table. Quantity is zero for rows that carry no count.
type ItemRow struct {
	Quantity    int    `json:"quantity,omitempty"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Carrier     string `json:"carrier"`
}

// Signature is one footer slot
type Signature struct {
	Level           int        `json:"level"`
	Title           string     `json:"title"`
	Mark            string     `json:"mark"`
	Approved        bool       `json:"approved"`
	ApproverContact string     `json:"approver_contact,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// ParseQuantity reads the leading numeral of an item description, defaulting to 1
func ParseQuantity(item string) int {
	m := leadingNumeral.FindStringSubmatch(item)
	if m == nil {
		return defaultAmount
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return defaultAmount
	}
	return n
}

// Project builds the letter for req as of today. It reads req only.
func Project(req *entity.ApprovalRequest, today time.Time, cfg Config) *Letter {
	items := req.SelectedItems

	l := &Letter{
		RequestID:  req.ID,
		Office:     cfg.Office,
		Division:   cfg.Division,
		Site:       cfg.Site,
		Date:       today.Format(displayDate),
		Addressee:  cfg.Addressee,
		Subject:    subject(items, cfg.Division),
		Body:       body(req, cfg),
		TableTitle: cfg.TableTitle,
		Rows:       itemRows(items, req.SubmitterName),
		Note:       cfg.Note,
		Signatures: signatures(req, cfg.SignatoryTitles),
	}
	return l
}

func subject(items []string, division string) string {
	what := "ITEMS"
	if len(items) > 0 {
		what = strings.ToUpper(strings.Join(items, ", "))
	}
	return fmt.Sprintf("SUB: PERMISSION FOR %s TO BRING INSIDE %s", what, division)
}

func body(req *entity.ApprovalRequest, cfg Config) string {
	eventDate := "N/A"
	if !req.RequestDate.IsZero() {
		eventDate = req.RequestDate.Format(displayDate)
	}
	return fmt.Sprintf(
		"Mr/Mrs %s from %s (%s) is visiting %s on %s at %s for %s. In this connection, He/She may be allowed to carry %s as per the details given below.",
		req.SubmitterName, req.OrganisationName, cfg.DivisionName, cfg.Host,
		eventDate, req.RequestTime, req.Purpose, strings.Join(req.SelectedItems, ", "),
	)
}

func itemRows(items []string, carrier string) []ItemRow {
	if len(items) == 0 {
		return []ItemRow{{Description: noItemsRow}}
	}

	rows := make([]ItemRow, 0, len(items)+2)
	var hasAdaptor, hasToolKit bool
	for _, item := range items {
		rows = append(rows, ItemRow{
			Quantity:    ParseQuantity(item),
			Description: fmt.Sprintf("%s (Serial No. %s)", item, blankLine),
			Make:        blankLine,
			Carrier:     carrier,
		})

		lower := strings.ToLower(item)
		hasAdaptor = hasAdaptor || strings.Contains(lower, "adaptor") || strings.Contains(lower, "console cable")
		hasToolKit = hasToolKit || strings.Contains(lower, "tool kit")
	}

	if hasAdaptor {
		rows = append(rows, ItemRow{Description: adaptorRow, Make: adaptorMake, Carrier: carrier})
	}
	if hasToolKit {
		rows = append(rows, ItemRow{Description: toolKitRow, Carrier: carrier})
	}
	return rows
}

func signatures(req *entity.ApprovalRequest, titles []string) []Signature {
	out := make([]Signature, len(titles))
	for i, title := range titles {
		level := i + 1
		sig := Signature{Level: level, Title: title, Mark: unsignedMark}
		if e, ok := req.ApprovalAt(level); ok {
			at := e.ApprovedAt
			sig.Mark = approvedMark
			sig.Approved = true
			sig.ApproverContact = e.ApproverContact
			sig.ApprovedAt = &at
		}
		out[i] = sig
	}
	return out
}
