package pubcord

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/metrics"
)

const (
	reasonBoostingMain  = "Boosting main server"
	reasonBoostingEmote = "Boosting emote server"
	reasonNotBoosting   = "No longer boosting main OR emote server"
)

type MemberEditor interface {
	GuildMembers(ctx context.Context, guildId string) ([]chat.Member, error)
	EditMemberRoles(ctx context.Context, guildId string, memberId string, roles []string, reason string) error
}

// A member getting the booster role, with the audit log reason
type Grant struct {
	chat.Member
	Reason string
}

// Reconcile decides who gets the booster role in the primary guild and
// who loses it. Boosting the secondary guild only counts for members of
// the primary one, and boosting the primary guild takes precedence
func Reconcile(primary []chat.Member, secondary []chat.Member, roleId string) (grant []Grant, revoke []chat.Member) {

	// Member id to the reason they get the role
	boosting := map[string]string{}
	for _, member := range secondary {
		if member.Boosting {
			boosting[member.ID] = reasonBoostingEmote
		}
	}
	for _, member := range primary {
		if member.Boosting {
			boosting[member.ID] = reasonBoostingMain
		}
	}

	for _, member := range primary {
		reason, isBoosting := boosting[member.ID]
		hasRole := slices.Contains(member.Roles, roleId)
		switch {
		case isBoosting && !hasRole:
			grant = append(grant, Grant{Member: member, Reason: reason})
		case !isBoosting && hasRole:
			revoke = append(revoke, member)
		}
	}
	return grant, revoke
}

// BoosterSync gives a role in the primary guild to everyone boosting
// either guild, and takes it from everyone else
type BoosterSync struct {
	client           MemberEditor
	guildId          string
	secondaryGuildId string
	roleId           string
}

func NewBoosterSync(client MemberEditor, guildId string, secondaryGuildId string, roleId string) *BoosterSync {
	return &BoosterSync{client: client, guildId: guildId, secondaryGuildId: secondaryGuildId, roleId: roleId}
}

// Sync runs one reconciliation pass. It stops at the first failed edit;
// whatever was left out is picked up by the next pass
func (b *BoosterSync) Sync(ctx context.Context) error {

	log.Info().Msg("running pubcord booster role parity check")

	primary, err := b.client.GuildMembers(ctx, b.guildId)
	if err != nil {
		return err
	}
	var secondary []chat.Member
	if b.secondaryGuildId != "" {
		if secondary, err = b.client.GuildMembers(ctx, b.secondaryGuildId); err != nil {
			return err
		}
	}

	grant, revoke := Reconcile(primary, secondary, b.roleId)
	granted, revoked := 0, 0
	defer func() { metrics.AddBoosterChanges(granted, revoked) }()

	for _, member := range grant {
		log.Info().Str("member", member.ID).Str("reason", member.Reason).Msg("adding member to booster role")
		roles := append(slices.Clone(member.Roles), b.roleId)
		if err := b.client.EditMemberRoles(ctx, b.guildId, member.ID, roles, member.Reason); err != nil {
			return err
		}
		granted++
	}
	for _, member := range revoke {
		log.Info().Str("member", member.ID).Msg("not boosting either server, removing")
		roles := slices.DeleteFunc(slices.Clone(member.Roles), func(role string) bool { return role == b.roleId })
		if err := b.client.EditMemberRoles(ctx, b.guildId, member.ID, roles, reasonNotBoosting); err != nil {
			return err
		}
		revoked++
	}

	log.Info().Int("granted", granted).Int("revoked", revoked).Msg("parity check complete")
	return nil
}
