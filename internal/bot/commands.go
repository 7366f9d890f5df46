package bot

import (
	"context"
	"strings"

	"github.com/programmingdumpster/partybot/internal/discord"
)

const (
	commandSetup   = "party-setup"
	commandCreate  = "party-create"
	commandRename  = "party-rename"
	commandRemove  = "party-remove"
	commandPanel   = "party-panel"
	commandLeave   = "party-leave"
	commandDisband = "party-disband"

	optionName   = "nazwa"
	optionMember = "czlonek"
	optionParty  = "party"
)

// Prefix commands accepted in DMs.
const (
	prefixLeave   = "opusc"
	prefixRemove  = "usun_czlonka"
	prefixRename  = "zmien_nazwe_party"
	prefixMembers = "lista_czlonkow"
	prefixPanel   = "panel"
	prefixRefresh = "refreshpanel"
)

func SlashCommands() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{Name: commandSetup, Description: slashCommandSetupDescription, AdminOnly: true},
		{Name: commandCreate, Description: slashCommandCreateDescription},
		{
			Name:        commandRename,
			Description: slashCommandRenameDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionName, Description: optionNameDescription, Type: discord.OptionString, Required: true},
			},
		},
		{
			Name:        commandRemove,
			Description: slashCommandRemoveDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionMember, Description: optionMemberDescription, Type: discord.OptionUser, Required: true},
			},
		},
		{Name: commandPanel, Description: slashCommandPanelDescription},
		{
			Name:        commandLeave,
			Description: slashCommandLeaveDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionParty, Description: optionPartyDescription, Type: discord.OptionString},
			},
		},
		{Name: commandDisband, Description: slashCommandDisbandDescription},
	}
}

// prefixCommand splits "!name args" into its name and the remaining text.
func (m *Manager) prefixCommand(content string) (name, args string, ok bool) {
	prefix := m.cfg.CommandPrefix
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	name, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// runPrefixCommand reports handled=false for names it does not know so the
// message can reach an open creation exchange instead.
func (m *Manager) runPrefixCommand(ctx context.Context, userID, name, args string) (reply string, handled bool) {
	switch name {
	case prefixLeave:
		return m.leaveParty(ctx, userID, args), true
	case prefixRemove:
		return m.removeMember(ctx, userID, args), true
	case prefixRename:
		return m.renameParty(ctx, userID, args), true
	case prefixMembers, prefixPanel, prefixRefresh:
		return m.refreshPanel(ctx, userID), true
	}
	return "", false
}
