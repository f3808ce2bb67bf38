package notifier

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
)

type Notifier interface {
	NotifyBooking(user models.User, entry models.BookingHistoryEntry) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifyBooking(user models.User, entry models.BookingHistoryEntry) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, bookingMessage(user, entry))
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}

func bookingMessage(user models.User, entry models.BookingHistoryEntry) string {
	who := user.Username
	if user.DiscordID != "" {
		who = fmt.Sprintf("%s (<@%s>)", user.Username, user.DiscordID)
	}

	return fmt.Sprintf("🌴 **New Booking**\n**Reference:** %s\n**Traveler:** %s\n**Package:** %s (%s)\n**Travel Date:** %s\n**Travelers:** %d\n**Total:** $%.2f\n**Paid With:** %s",
		entry.Reference,
		who,
		entry.PackageName,
		entry.PackageID,
		time.Time(entry.TravelDate).Format("2006-01-02"),
		entry.TravelerCount,
		entry.TotalAmount,
		entry.PaymentMethod,
	)
}
