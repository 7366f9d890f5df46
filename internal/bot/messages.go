package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/programmingdumpster/partybot/internal/games"
	"github.com/programmingdumpster/partybot/internal/party"
	"github.com/programmingdumpster/partybot/internal/repository"
)

const (
	slashCommandSetupDescription   = "Wysyła wiadomość z przyciskiem do tworzenia party na kanale tworzenia party."
	slashCommandCreateDescription  = "Rozpoczyna tworzenie nowego party w wiadomościach prywatnych."
	slashCommandRenameDescription  = "Zmienia nazwę Twojego party."
	slashCommandRemoveDescription  = "Usuwa członka z Twojego party."
	slashCommandPanelDescription   = "Wysyła ponownie panel zarządzania party."
	slashCommandLeaveDescription   = "Opuszcza party, do którego należysz."
	slashCommandDisbandDescription = "Rozwiązuje Twoje party."

	optionNameDescription   = "Nowa nazwa party"
	optionMemberDescription = "Członek do usunięcia"
	optionPartyDescription  = "ID lub nazwa party"

	messageWrongGuild       = "Ta komenda nie działa na tym serwerze."
	messageUnknownCommand   = "Nieznana komenda."
	messageInternalError    = "Wystąpił nieoczekiwany błąd. Spróbuj ponownie później."
	messageButtonError      = "Błąd wewnętrzny przycisku."
	messagePartyGone        = "To party już nie istnieje."
	messageNotLeaderOfAny   = "Nie jesteś liderem żadnego aktywnego party."
	messageRemoveSelf       = "Nie możesz usunąć siebie. Użyj przycisku 'Rozwiąż Party' w panelu."
	messageNotInYourParty   = "Tego użytkownika nie ma w Twoim party."
	messageBadMemberFormat  = "Niepoprawny format identyfikatora. Podaj @wzmiankę lub ID."
	messageNameEmpty        = "Nowa nazwa party nie może być pusta."
	messageNameUnchanged    = "Nowa nazwa jest taka sama. Nie dokonano zmian."
	messagePanelRefreshed   = "Panel zarządzania odświeżony."
	messageNotMemberOfAny   = "Nie jesteś członkiem żadnego party, które mógłbyś opuścić tą komendą."
	messageNotMember        = "Nie jesteś członkiem tego party."
	messageLeaderCannotQuit = "Lider nie może opuścić party w ten sposób. Rozwiąż je, jeśli chcesz je zakończyć."
	messageOnlyLeader       = "Tylko lider może to zrobić."
	messageRefused          = "Nie można wykonać tej operacji."

	messageSetupPosted         = "Wiadomość z przyciskiem do tworzenia party została wysłana na <#%s>."
	messageSetupChannelMissing = "Nie znaleziono kanału `#%s`. Utwórz go najpierw."
	messageSetupNoPermission   = "Nie mam uprawnień do wysłania wiadomości na kanale `#%s`."
	messageSetupTitle          = "🎉 Stwórz Nowe Party!"
	messageSetupBody           = "Kliknij poniższy przycisk, aby rozpocząć proces tworzenia party.\nZostaniesz poprowadzony przez kolejne kroki w wiadomościach prywatnych (DM)."
	buttonCreateLabel          = "Stwórz Party"

	messageAlreadyLeaderFormat  = "<@%s>, jesteś już liderem party '%s'. Możesz prowadzić tylko jedno party."
	messageCreationInProgress   = "Tworzenie party jest już w toku. Sprawdź wiadomości prywatne."
	messageCreationDMBlocked    = "<@%s>, nie mogę Ci wysłać DM. Sprawdź ustawienia prywatności."
	messageCreationStarted      = "Rozpoczynam proces tworzenia party w Twoich wiadomościach prywatnych (DM)... Sprawdź DM!"
	messageGamePrompt           = "Wybierz Grę:"
	messageGameTimeoutFormat    = "Anulowano tworzenie party (brak wyboru gry w ciągu %s)."
	messageNamePromptFormat     = "Podaj nazwę Party (1-%d znaków):"
	messageNameInvalidFormat    = "Nieprawidłowa nazwa. Nazwa musi mieć od 1 do %d znaków. Spróbuj ponownie."
	messageNameTimeoutFormat    = "Anulowano tworzenie party (brak podania nazwy w ciągu %s)."
	messageCreationCancelled    = "Anulowano tworzenie party."
	messageAnnouncementMissing  = "Krytyczny błąd: Kanał `#%s` nie został znaleziony na serwerze."
	messageGuildUnavailable     = "Serwer jest chwilowo niedostępny. Spróbuj ponownie później."
	messageProvisionFailed      = "Nie udało się stworzyć kanałów party. Spróbuj ponownie później."
	messageAnnouncementFailed   = "Nie udało się opublikować ogłoszenia party. Spróbuj ponownie później."
	messagePartyCreatedFormat   = "Party '%s' stworzone! Panel zarządzania został wysłany."
	messageRenamedFormat        = "Nazwa party zmieniona z '%s' na '%s'."
	messageMemberRemovedFormat  = "<@%s> został usunięty z party '%s'."
	messageLeftFormat           = "Pomyślnie opuściłeś/aś party '%s'."
	messagePartyNotFoundFormat  = "Nie znaleziono party '%s'."
	messageAmbiguousPartyFormat = "Jesteś członkiem kilku party o tej nazwie. Podaj ID:\n%s"
	messageDisbandingFormat     = "Party '%s' zostało rozwiązane."

	messageJoinIsLeader    = "Jesteś liderem tego party, nie musisz prosić o dołączenie."
	messageJoinAlreadyIn   = "Już jesteś członkiem tego party!"
	messageJoinPending     = "Twoja prośba o dołączenie do tego party już oczekuje na akceptację lidera."
	messageJoinLeaderDM    = "Nie udało się wysłać prośby do lidera (prawdopodobnie ma zablokowane DM)."
	messageJoinRequestSent = "Twoja prośba o dołączenie została wysłana do lidera party."

	messageDecisionTaken       = "Decyzja została już podjęta."
	messageDecisionGone        = "Ta prośba wygasła lub została już rozpatrzona."
	messageDecisionLeaderOnly  = "Tylko lider tego party może zaakceptować lub odrzucić prośbę."
	messageDecisionLeftGuild   = "Nie można odnaleźć użytkownika <@%s> na serwerze. Mógł opuścić serwer przed akceptacją."
	messageDecisionAccepted    = "Zaakceptowano prośbę od <@%s> o dołączenie do party '%s'."
	messageDecisionRejected    = "Odrzucono prośbę od <@%s> o dołączenie do party '%s'."
	messageApprovalRequest     = "Użytkownik <@%s> (`%s`) chce dołączyć do Twojego party: **%s**."
	buttonAcceptLabel          = "Tak, akceptuj"
	buttonRejectLabel          = "Nie, odrzuć"
	buttonJoinLabel            = "Poproś o Dołączenie"
	buttonLeaveLabel           = "Opuść Party"
	buttonDisbandLabel         = "Rozwiąż Party"
	messageArrivalFormat       = "🎉 <@%s> dołączył(a) do party na zaproszenie lidera!"
	messageNoMembers           = "Brak członków."
	messageAnnouncementPending = "ID Party zostanie przypisane po wysłaniu."
)

func setupPosted(channelID string) string { return fmt.Sprintf(messageSetupPosted, channelID) }

func gamePrompt(catalog *games.Catalog) string {
	lines := []string{messageGamePrompt}
	for _, g := range catalog.Games() {
		lines = append(lines, fmt.Sprintf("%s - %s", g.Emoji, g.Name))
	}
	return strings.Join(lines, "\n")
}

func mention(userID string) string { return "<@" + userID + ">" }

func memberMentions(p repository.Party) string {
	if len(p.MemberIDs) == 0 {
		return messageNoMembers
	}
	lines := make([]string, 0, len(p.MemberIDs))
	for _, id := range p.MemberIDs {
		lines = append(lines, mention(id))
	}
	return strings.Join(lines, "\n")
}

func discordTime(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// humanDuration renders whole minutes or hours in Polish.
func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d h", int(d/time.Hour))
	}
	if d >= time.Minute {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return fmt.Sprintf("%d s", int(d/time.Second))
}

func disbandReasonText(n party.Notice) string {
	if n.Reason == party.ReasonExpired {
		return fmt.Sprintf("Party automatycznie wygasło %s.", discordTime(n.Party.ExpiresAt, "F"))
	}
	return "Rozwiązane przez lidera."
}

func extensionPromptText(p repository.Party, replyDue time.Time, extendBy time.Duration, yes, no string) string {
	return fmt.Sprintf("🔔 Przypomnienie!\nTwoje party **'%s'** wygasa %s.\nPrzedłużyć o **%s**? Odpisz `%s`/`%s` do %s.",
		p.PartyName, discordTime(p.ExpiresAt, "R"), humanDuration(extendBy), yes, no, discordTime(replyDue, "R"))
}

// noticeText words a notification for its recipient.
func noticeText(n party.Notice) string {
	name := n.Party.PartyName
	switch n.Kind {
	case party.NoticeJoinAccepted:
		return fmt.Sprintf("Twoja prośba o dołączenie do party '%s' (ID: `%s`) została ZAAKCEPTOWANA!", name, n.Party.PartyID)
	case party.NoticeJoinRejected:
		return fmt.Sprintf("Twoja prośba o dołączenie do party '%s' (ID: `%s`) została ODRZUCONA.", name, n.Party.PartyID)
	case party.NoticeJoinExpired:
		return fmt.Sprintf("Twoja prośba o dołączenie do party '%s' (ID: `%s`) wygasła z powodu braku odpowiedzi od lidera w wyznaczonym czasie.", name, n.Party.PartyID)
	case party.NoticeJoinExpiredLeader:
		return fmt.Sprintf("Prośba o dołączenie od %s do Twojego party '%s' (ID: `%s`) wygasła (nie podjąłeś decyzji na czas).", mention(n.UserID), name, n.Party.PartyID)
	case party.NoticeMemberLeft:
		return fmt.Sprintf("Użytkownik %s (`%s`) opuścił Twoje party '%s'.", mention(n.UserID), n.UserID, name)
	case party.NoticeMemberRemoved:
		return fmt.Sprintf("Zostałeś/aś usunięty/a z party '%s' przez lidera.", name)
	case party.NoticeDisbanded:
		return fmt.Sprintf("Twoje party '%s' zostało rozwiązane. Powód: %s", name, disbandReasonText(n))
	case party.NoticeExtended:
		return fmt.Sprintf("Party **'%s'** przedłużone! Nowy czas wygaśnięcia: %s.", name, discordTime(n.Party.ExpiresAt, "F"))
	case party.NoticeExtensionDeclined:
		return fmt.Sprintf("Nie przedłużono party **'%s'**. Wygaśnie %s.", name, discordTime(n.Party.ExpiresAt, "R"))
	case party.NoticeExtensionTimedOut:
		return fmt.Sprintf("Nie otrzymano odpowiedzi ws. przedłużenia party '%s'. Wygaśnie %s.", name, discordTime(n.Party.ExpiresAt, "R"))
	case party.NoticeExtensionReplyTooLate:
		return fmt.Sprintf("Odpowiedź dla party '%s' przyszła po czasie.", name)
	}
	return fmt.Sprintf("Party '%s': %s", name, n.Kind)
}

func ambiguousPartyText(err *party.AmbiguousPartyError) string {
	lines := make([]string, 0, len(err.Candidates))
	for _, p := range err.Candidates {
		lines = append(lines, fmt.Sprintf("- `%s` : %s", p.PartyID, p.PartyName))
	}
	return fmt.Sprintf(messageAmbiguousPartyFormat, strings.Join(lines, "\n"))
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }
