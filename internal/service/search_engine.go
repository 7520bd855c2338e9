package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/contactinfo"
	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
)

var (
	searchColumns   = []string{"roblox_username", "contact_info", "assigned_code", "customer_name"}
	fallbackColumns = []string{"contact_info"}
	whitespaceRun   = regexp.MustCompile(`\s+`)
	likeEscaper     = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// Variants returns the lowercased term plus its underscore and space
// spellings, de-duplicated. A blank term has no variants.
func Variants(term string) []string {
	base := strings.ToLower(strings.TrimSpace(term))
	if base == "" {
		return nil
	}
	candidates := []string{
		base,
		whitespaceRun.ReplaceAllString(base, "_"),
		strings.ReplaceAll(base, "_", " "),
	}
	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}
	return variants
}

// EscapeLike escapes ILIKE metacharacters so s matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func containsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// SearchEngine runs the multi-variant substring search over tickets.
type SearchEngine struct {
	tickets repository.TicketRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSearchEngine builds the engine.
func NewSearchEngine(deps QueueDependencies) *SearchEngine {
	deps = deps.withDefaults()
	return &SearchEngine{tickets: deps.TicketRepo, logger: deps.Logger, metrics: deps.Metrics}
}

// Search unions the matches of every variant, by ticket id, in FIFO order.
// If nothing matched it retries contact_info alone with the lowercased term.
// Failed queries are logged and contribute nothing.
func (s *SearchEngine) Search(ctx context.Context, term string) []domain.Ticket {
	variants := Variants(term)
	if len(variants) == 0 {
		return []domain.Ticket{}
	}

	seen := map[string]struct{}{}
	result := []domain.Ticket{}
	collect := func(tickets []domain.Ticket) {
		for _, t := range tickets {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			result = append(result, t)
		}
	}

	for _, v := range variants {
		collect(s.query(ctx, containsPattern(v), searchColumns))
	}
	if len(result) == 0 {
		collect(s.query(ctx, containsPattern(variants[0]), fallbackColumns))
	}
	sortTickets(result)
	return result
}

func (s *SearchEngine) query(ctx context.Context, pattern string, columns []string) []domain.Ticket {
	tickets, err := s.tickets.SearchAny(ctx, pattern, columns)
	if err != nil {
		s.metrics.Inc(observability.CounterReadDegraded)
		s.logger.Warn("ticket search failed", zap.String("pattern", pattern), zap.Strings("columns", columns), zap.Error(err))
		return nil
	}
	return tickets
}

// FilterViews keeps the views any targeted field of which contains q,
// case-insensitively.
func FilterViews(views []domain.TicketView, q string) []domain.TicketView {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return views
	}
	result := make([]domain.TicketView, 0, len(views))
	for _, v := range views {
		if MatchesView(v, needle) {
			result = append(result, v)
		}
	}
	return result
}

// MatchesView checks queue number, in-game name, phone, assigned code,
// assigned account code, password and status. needle must be lowercased.
func MatchesView(v domain.TicketView, needle string) bool {
	if strings.Contains(strconv.FormatInt(v.QueueNumber, 10), needle) {
		return true
	}
	fields := []*string{
		v.RobloxUsername,
		v.AssignedCode,
		v.AssignedAccountCode,
		v.RobloxPassword,
	}
	if phone, ok := contactinfo.Phone(v.ContactInfo); ok {
		fields = append(fields, &phone)
	}
	status := string(v.Status)
	fields = append(fields, &status)

	for _, f := range fields {
		if f != nil && strings.Contains(strings.ToLower(*f), needle) {
			return true
		}
	}
	return false
}
