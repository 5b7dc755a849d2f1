package notify

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

const timeLayout = "02/01/2006 15:04:05"

// TradeMessage renders one trade as a multi-line chat message.
func TradeMessage(t domain.Trade) string {
	timeStr := "unknown"
	if t.Timestamp != 0 {
		timeStr = t.Time().Local().Format(timeLayout)
	}

	side := strings.ToUpper(t.Side)
	title := t.Title
	if title == "" {
		title = t.MarketSlug
	}
	if title == "" {
		title = "Unknown market"
	}

	tx := t.TxHash
	if tx == "" {
		tx = t.ID
	}
	if tx == "" {
		tx = "n/a"
	}

	lines := []string{
		fmt.Sprintf("⏰ %s", timeStr),
		fmt.Sprintf("%s Action: %s", sideEmoji(side), side),
		fmt.Sprintf("🎯 Parts: %s", shares(t.Size, t.Price)),
		fmt.Sprintf("💰 Montant total: %s USDC", rawAmount(t.Size)),
		fmt.Sprintf("💵 Prix: %s USDC", rawAmount(t.Price)),
		fmt.Sprintf("🎲 Marché: %s", title),
		fmt.Sprintf("🔗 Tx: %s", tx),
	}
	return strings.Join(lines, "\n")
}

// EmailBody renders the batch email: one banner per address followed by its
// trades newest first, with separators between trades. Addresses without
// trades are skipped. Canonical addresses render in checksum form.
func EmailBody(groups []domain.AddressTrades) string {
	var blocks []string

	for _, g := range groups {
		if len(g.Trades) == 0 {
			continue
		}

		trades := append([]domain.Trade(nil), g.Trades...)
		sort.SliceStable(trades, func(i, j int) bool {
			return trades[i].Timestamp > trades[j].Timestamp
		})

		blocks = append(blocks,
			strings.Repeat("=", 80),
			fmt.Sprintf("🔍 TRADES PAR %s", domain.ChecksumAddress(g.Address)),
			strings.Repeat("=", 80),
			"",
		)

		for _, t := range trades {
			timeStr := "Heure inconnue"
			if t.Timestamp != 0 {
				timeStr = t.Time().Local().Format(timeLayout)
			}

			side := strings.ToUpper(t.Side)
			title := t.Title
			if title == "" {
				title = t.MarketSlug
			}
			if title == "" {
				title = t.EventSlug
			}
			if title == "" {
				title = "Marché inconnu"
			}

			blocks = append(blocks,
				fmt.Sprintf("⏰ %s", timeStr),
				fmt.Sprintf("%s Action: %s", sideEmoji(side), side),
				fmt.Sprintf("🎯 Parts: %s", shares(t.Size, t.Price)),
				fmt.Sprintf("💰 Montant Total: %s USDC", formatDecimal(t.Size)),
				fmt.Sprintf("💵 Prix par part: %s USDC", formatDecimal(t.Price)),
				fmt.Sprintf("🎲 Marché: %s", title),
				"",
				strings.Repeat("-", 40),
				"",
			)
		}
	}

	return strings.Join(blocks, "\n")
}

// Subject builds the email subject line, e.g. "[Polymarket Watch] 3 nouveaux
// trades". An empty prefix leaves no leading space.
func Subject(prefix string, count int) string {
	suffix := "nouveau trade"
	if count > 1 {
		suffix = "nouveaux trades"
	}
	return strings.TrimSpace(fmt.Sprintf("%s %d %s", strings.TrimSpace(prefix), count, suffix))
}

func sideEmoji(side string) string {
	switch side {
	case "BUY":
		return "🟢"
	case "SELL":
		return "🔴"
	default:
		return "⚪"
	}
}

// shares computes size/price rounded to a whole share count with thousands
// separators, or "N/A" when either value is missing or zero.
func shares(size, price *float64) string {
	if size == nil || *size == 0 || price == nil || *price == 0 {
		return "N/A"
	}
	return humanize.Comma(int64(math.Round(*size / *price)))
}

// rawAmount renders the shortest exact representation of the value, the way
// chat messages show amounts. Missing or zero values render as "N/A".
func rawAmount(v *float64) string {
	if v == nil || *v == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatDecimal adapts precision to magnitude: values of 100 and above get
// no decimals, 10 and above two, everything else four, all with thousands
// separators.
func formatDecimal(v *float64) string {
	if v == nil {
		return "N/A"
	}
	switch {
	case *v >= 100:
		return humanize.FormatFloat("#,###.", *v)
	case *v >= 10:
		return humanize.FormatFloat("#,###.##", *v)
	default:
		return humanize.FormatFloat("#,###.####", *v)
	}
}
