package pubcord

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/format"
	"tierbot/internal/metrics"
)

// Custom ids of the quick link buttons. They survive restarts, so a
// button on an old message still reaches the bot and has to be refused
const (
	ButtonCurrentEvent     = "persistent_view:currentevent"
	ButtonGameCrash        = "persistent_view:gamecrash"
	ButtonAndroidPurchase  = "persistent_view:androidpurchase"
	ButtonScheduleChanges  = "persistent_view:schedule"
	quickLinksContent      = "Access quick links by clicking the buttons below!"
	quickLinksExpiredTitle = "These quick links are gone"
)

// Views keeps the messages whose buttons are still answered.
// A view is stopped before its message is deleted so a click racing
// the deletion is refused
type Views struct {
	mu     sync.Mutex
	active map[string]struct{}
	count  int
}

func NewViews() *Views {
	return &Views{active: map[string]struct{}{}}
}

func (v *Views) Start(messageId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active[messageId] = struct{}{}
}

func (v *Views) Stop(messageId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.active, messageId)
}

func (v *Views) Active(messageId string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.active[messageId]
	return ok
}

// Number of messages currently answering clicks
func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.active)
}

// QuickLinksMessage is the message the refresher keeps at the bottom of the channel
func QuickLinksMessage() chat.Outgoing {
	return chat.Outgoing{
		Content: quickLinksContent,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "What's the current event?", Style: discordgo.SuccessButton, CustomID: ButtonCurrentEvent},
				discordgo.Button{Label: "My game crashes!", Style: discordgo.PrimaryButton, CustomID: ButtonGameCrash},
				discordgo.Button{Label: "I can't purchase stars!", Style: discordgo.PrimaryButton, CustomID: ButtonAndroidPurchase},
				discordgo.Button{Label: "Upcoming Schedule & DF Changes", Style: discordgo.PrimaryButton, CustomID: ButtonScheduleChanges},
			}},
		},
	}
}

// IsQuickLink tells if a component custom id belongs to the quick links
func IsQuickLink(customId string) bool {
	switch customId {
	case ButtonCurrentEvent, ButtonGameCrash, ButtonAndroidPurchase, ButtonScheduleChanges:
		return true
	}
	return false
}

// Click answers a quick link button pressed on a message. The reply
// is meant to be ephemeral
func (v *Views) Click(messageId string, customId string) *discordgo.MessageEmbed {

	if !v.Active(messageId) {
		log.Info().Str("message", messageId).Str("button", customId).Msg("Refusing click on a stopped view")
		return format.Embed(quickLinksExpiredTitle, "Use the buttons on the latest quick links message at the bottom of the channel.")
	}

	var embed *discordgo.MessageEmbed
	switch customId {
	case ButtonCurrentEvent:
		embed = currentEventEmbed()
	case ButtonGameCrash:
		embed = gameCrashEmbed()
	case ButtonAndroidPurchase:
		embed = androidPurchaseEmbed()
	case ButtonScheduleChanges:
		embed = scheduleEmbed()
	default:
		return nil
	}

	v.mu.Lock()
	v.count++
	count := v.count
	v.mu.Unlock()
	metrics.IncQuickLinkClick(customId)
	log.Info().Msgf("Quick Link Interaction %d", count)
	return embed
}

func currentEventEmbed() *discordgo.MessageEmbed {
	embed := format.Embed("Current Status of EN Bandori",
		`※ Active changes to the event schedule are in effect. Check "Upcoming Schedule and Changes" for more info.`)
	format.Image(embed, "https://files.s-neon.xyz/share/FM6BtDqUcAMC0u2.png")
	format.Field(embed, "Current Event", "A Stroll Colored By Sakura\n"+
		format.Timestamp(1646355600)+" to "+format.Timestamp(1646895540)+"\n\n"+
		"**Event Type**: VS Live\n"+
		"**Attribute**: Happy <:attrHappy:432978959957753905>\n"+
		"**Characters**: Hina, Chisato, Maya, Aya, Eve\n\n"+
		"※The event period above is automatically converted to the timezone set on your system.")
	format.Field(embed, "Campaigns", "> 300 Songs Released Login Campaign - x300 <:StarGem:432995521892843520>\n"+
		"> "+format.Timestamp(1646121600)+" to "+format.Timestamp(1646985540)+"\n\n"+
		"> Poppin'Party Band Story 3 Countdown Login Campaign - x50 <:StarGem:432995521892843520> each day\n"+
		"> "+format.Timestamp(1646812800)+" to "+format.Timestamp(1647071940))
	format.Field(embed, "Gacha", "> Cosmic Sea Cruise Gacha [LIMITED]\n"+
		"> "+format.Timestamp(1646355600)+" to "+format.Timestamp(1647046740)+"\n\n"+
		"This list is subject to change. More information coming soon.")
	return format.Footer(embed, "Last Updated 3/3/2022")
}

func gameCrashEmbed() *discordgo.MessageEmbed {
	embed := format.Embed("I have an android and my game keeps crashing! What do I do?",
		"Good news! The **version 4.10.3** update should fix the crashing issue for Android users. "+
			"If you are still having issues, you can try the workarounds below.\n\n"+
			"※ Clear the cache in Android settings and restart the phone; then clear cache in game and restart.\n"+
			"※ Delete your Google ad ID (if you don't have one, make a new one and then delete it).\n"+
			"※ Use a VPN to connect from Japan/Singapore using mobile data.")
	return format.Footer(embed, "Updated 3/10/22")
}

func androidPurchaseEmbed() *discordgo.MessageEmbed {
	embed := format.Embed("I have an android and am trying to buy stars but cannot! What do I do?",
		"The dev team is aware of this issue and is currently working to resolve it.\n\n"+
			"https://twitter.com/bangdreamgbp_EN/status/1500709014656585729")
	return format.Footer(embed, "Updated 3/10/22")
}

func scheduleEmbed() *discordgo.MessageEmbed {
	embed := format.Embed("Notice - Upcoming Schedule, v5.0.0 Delays, & Dreamfest/Birthday Gacha Info",
		"Due to the previous optimization work for Android issues, the next major update (v5.0) will be pushed back.\n"+
			"Events and features that relied on the version update will be rescheduled.")
	format.Field(embed, "Upcoming Schedule - Dates are in UTC", "> A Stroll Colored by Sakura: March 4 - March 10\n"+
		"> Live Beyond: March 12 - March 18\n"+
		"> Embracing Your Lost and Confused Self: March 20 - March 28\n"+
		"> Analysis of Harmony and Change: March 30 - April 5\n"+
		"> Little Rose Harmony: April 7 - April 13\n"+
		"> Backstage Pass 4: April 15\n"+
		"※ Event title translations are subject to change.")
	format.Field(embed, "What will happen to Dream Festivals?",
		"Dream Festivals are currently set to be connected to their corresponding Event. Expect a Dream Festival on March 20, and April 15.")
	format.Field(embed, "What happens to Birthday Gachas?",
		"Birthday Gachas will take place after the 5.0 update gets released. These will **NOT** be pushed back an entire year.")
	return format.Footer(embed, "Last Updated 3/3/2022.")
}
