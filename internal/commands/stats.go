package commands

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"go-amadeus/internal/logging"
)

const topChatters = 5

// SystemStats holds host, runtime and bot statistics for /stats.
type SystemStats struct {
	Hostname string
	Platform string
	Uptime   time.Duration

	CPUModel   string
	CPUThreads int
	CPUUsage   float64

	TotalMemory   uint64
	UsedMemory    uint64
	MemoryPercent float64

	DiskTotal   uint64
	DiskUsed    uint64
	DiskPercent float64

	GoVersion  string
	GoRoutines int
	MemAlloc   uint64
	NumGC      uint32

	BotUptime time.Duration
	Guilds    int
	Latency   time.Duration
}

// handleStats shows host statistics, bot health and the most active members.
func (h *Handler) handleStats(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	// Sampling the CPU takes a moment.
	if err := h.deferReply(i); err != nil {
		return err
	}

	stats := h.gatherSystemStats(ctx)
	embeds := []*discordgo.MessageEmbed{createStatsEmbed(stats), h.activityEmbed(ctx)}

	_, err := h.resp.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	})
	return err
}

// gatherSystemStats collects what it can; unavailable sources stay zero.
func (h *Handler) gatherSystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		CPUThreads: runtime.NumCPU(),
		GoVersion:  runtime.Version(),
		GoRoutines: runtime.NumGoroutine(),
		BotUptime:  time.Since(h.started),
		Guilds:     h.guildCount(),
		Latency:    h.latency(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.Platform = info.Platform
		stats.Uptime = time.Duration(info.Uptime) * time.Second
	} else {
		logging.Debug("[STATS] host info: %v", err)
	}

	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		stats.CPUModel = info[0].ModelName
	}
	if pct, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false); err == nil && len(pct) > 0 {
		stats.CPUUsage = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.TotalMemory = vm.Total
		stats.UsedMemory = vm.Used
		stats.MemoryPercent = vm.UsedPercent
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		stats.DiskTotal = du.Total
		stats.DiskUsed = du.Used
		stats.DiskPercent = du.UsedPercent
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.MemAlloc = m.Alloc
	stats.NumGC = m.NumGC

	return stats
}

func createStatsEmbed(stats SystemStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 System Statistics",
		Color: 0x00BFFF,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "🖥️ Host",
				Value: fmt.Sprintf("**Hostname:** `%s`\n**Platform:** `%s`\n**Uptime:** `%s`",
					stats.Hostname, stats.Platform, formatDuration(stats.Uptime)),
			},
			{
				Name: "⚡ CPU",
				Value: fmt.Sprintf("**Model:** `%s`\n**Threads:** `%d`\n**Usage:** `%.1f%%`\n%s",
					truncateString(stats.CPUModel, 40), stats.CPUThreads, stats.CPUUsage, createProgressBar(stats.CPUUsage, 100)),
				Inline: true,
			},
			{
				Name: "💾 Memory",
				Value: fmt.Sprintf("**Used:** `%s / %s`\n**Usage:** `%.1f%%`\n%s",
					formatBytes(stats.UsedMemory), formatBytes(stats.TotalMemory), stats.MemoryPercent, createProgressBar(stats.MemoryPercent, 100)),
				Inline: true,
			},
			{
				Name: "📀 Disk",
				Value: fmt.Sprintf("**Used:** `%s / %s`\n**Usage:** `%.1f%%`\n%s",
					formatBytes(stats.DiskUsed), formatBytes(stats.DiskTotal), stats.DiskPercent, createProgressBar(stats.DiskPercent, 100)),
			},
			{
				Name: "🤖 Bot",
				Value: fmt.Sprintf("**Uptime:** `%s`\n**Guilds:** `%d`\n**Latency:** `%dms`",
					formatDuration(stats.BotUptime), stats.Guilds, stats.Latency.Milliseconds()),
				Inline: true,
			},
			{
				Name: "🔷 Go Runtime",
				Value: fmt.Sprintf("**Version:** `%s`\n**Goroutines:** `%d`\n**Heap:** `%s`\n**GC Cycles:** `%d`",
					stats.GoVersion, stats.GoRoutines, formatBytes(stats.MemAlloc), stats.NumGC),
				Inline: true,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// activityEmbed summarises event throughput and the top chatters.
func (h *Handler) activityEmbed(ctx context.Context) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "📈 Activity", Color: 0x9370DB}

	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		var calls, failures uint64
		for _, k := range snap.Handlers {
			calls += k.Calls
			failures += k.Errors + k.Panics
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "⚙️ Events",
			Value: fmt.Sprintf("**Received:** `%d`\n**Rate:** `%.2f/s`\n**Handler calls:** `%d`\n**Failures:** `%d`",
				snap.Events, snap.EventsPerSecond, calls, failures),
			Inline: true,
		})
	}

	if h.tickets != nil {
		open, err := h.tickets.OpenCount(ctx)
		if err != nil {
			logging.Warn("[STATS] Failed to count tickets: %v", err)
		}
		value := fmt.Sprintf("**Open tickets:** `%d`", open)
		if h.voice != nil {
			value += fmt.Sprintf("\n**Private voice:** `%d`", h.voice.Tracked())
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🎫 Community", Value: value, Inline: true})
	}

	if h.counter != nil {
		top, err := h.counter.Top(ctx, topChatters)
		if err != nil {
			logging.Warn("[STATS] Failed to load message stats: %v", err)
		}
		value := "No messages counted yet."
		if len(top) > 0 {
			var b strings.Builder
			for n, s := range top {
				fmt.Fprintf(&b, "**%d.** <@%s> `%d`\n", n+1, s.UserID, s.Count)
			}
			value = b.String()
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "💬 Top Chatters", Value: value, Inline: true})
	}
	return embed
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func createProgressBar(value, max float64) string {
	filled := int(value / max * 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return "`" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "`"
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
