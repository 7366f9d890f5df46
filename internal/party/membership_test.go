package party

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitJoinRequest_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Nocne granie")
	h.addMember(t, p.PartyID, "M")

	_, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "L")
	assert.ErrorIs(t, err, ErrIsLeader)
	_, err = h.svc.SubmitJoinRequest(ctx, p.PartyID, "M")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	assert.ErrorIs(t, err, ErrAlreadyPending)

	_, err = h.svc.SubmitJoinRequest(ctx, "missing", "U")
	assert.ErrorIs(t, err, ErrPartyNotFound)

	got := h.mustGet(t, p.PartyID)
	assert.Equal(t, []string{"U"}, got.PendingJoinRequests)
	assertInvariants(t, got)
}

func TestSubmitJoinRequest_PersistsBeforeAskingLeader(t *testing.T) {
	h := newHarness(t)
	p := h.createParty(t, "L", "Raid")
	before := h.repo.saveCount()

	_, err := h.svc.SubmitJoinRequest(context.Background(), p.PartyID, "U")
	require.NoError(t, err)
	assert.Greater(t, h.repo.saveCount(), before)
	assert.Equal(t, []string{"U"}, h.repo.saved[p.PartyID].PendingJoinRequests)
	assert.Equal(t, []string{"U"}, h.presenter.approvals)
}

func TestSubmitJoinRequest_LeaderUnreachableRollsBack(t *testing.T) {
	h := newHarness(t)
	p := h.createParty(t, "L", "Raid")
	h.presenter.approvalErr = errors.New("cannot send messages to this user")

	_, err := h.svc.SubmitJoinRequest(context.Background(), p.PartyID, "U")
	require.ErrorIs(t, err, ErrLeaderUnreachable)
	assert.Empty(t, h.mustGet(t, p.PartyID).PendingJoinRequests)
	assert.Empty(t, h.repo.saved[p.PartyID].PendingJoinRequests)
}

func TestResolveJoinRequest_Accept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	res, err := h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	got := h.mustGet(t, p.PartyID)
	assert.Equal(t, []string{"L", "U"}, got.MemberIDs)
	assert.Empty(t, got.PendingJoinRequests)
	assertInvariants(t, got)
	assert.Equal(t, []string{"U"}, h.provisioner.granted)
	assert.Equal(t, []string{"U"}, h.presenter.arrivals)
	assert.Contains(t, h.notifier.kindsFor("U"), NoticeJoinAccepted)
	assert.Contains(t, h.prompter.deleted, d.Approval.MessageID)
}

// Scenario C: a request rejected by the leader leaves the roster untouched.
func TestResolveJoinRequest_RejectBeforeAccept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", false)
	require.NoError(t, err)

	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	got := h.mustGet(t, p.PartyID)
	assert.Empty(t, got.PendingJoinRequests)
	assert.Equal(t, []string{"L"}, got.MemberIDs)
	assert.Equal(t, []NoticeKind{NoticeJoinRejected}, h.notifier.kindsFor("U"))
	assert.Empty(t, h.provisioner.granted)
}

func TestResolveJoinRequest_SecondAcceptIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	require.NoError(t, err)
	saves := h.repo.saveCount()

	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, saves, h.repo.saveCount())
	assert.Equal(t, []string{"L", "U"}, h.mustGet(t, p.PartyID).MemberIDs)
	assert.Len(t, h.provisioner.granted, 1)
}

func TestResolveJoinRequest_NonLeaderDoesNotConsume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "U", true)
	assert.ErrorIs(t, err, ErrNotLeader)
	assert.False(t, d.Consumed())

	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	require.NoError(t, err)
}

func TestResolveJoinRequest_RequesterLeftGuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")
	h.provisioner.grantErr = ErrMemberNotInGuild

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	assert.ErrorIs(t, err, ErrMemberNotInGuild)

	got := h.mustGet(t, p.PartyID)
	assert.Equal(t, []string{"L"}, got.MemberIDs)
	assert.Empty(t, got.PendingJoinRequests)
}

func TestResolveJoinRequest_GrantFailureStillRecordsMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")
	h.provisioner.grantErr = errors.New("missing permissions")

	d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, "U")
	require.NoError(t, err)
	_, err = h.svc.ResolveJoinRequest(ctx, d.ID, "L", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "U"}, h.mustGet(t, p.PartyID).MemberIDs)
}

func TestResolveJoinRequest_UnknownDecision(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ResolveJoinRequest(context.Background(), "nope", "L", true)
	assert.ErrorIs(t, err, ErrDecisionNotFound)
}

func TestLeave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")
	h.addMember(t, p.PartyID, "M")

	_, err := h.svc.Leave(ctx, p.PartyID, "L")
	assert.ErrorIs(t, err, ErrLeaderCannotLeave)
	_, err = h.svc.Leave(ctx, p.PartyID, "stranger")
	assert.ErrorIs(t, err, ErrNotMember)

	got, err := h.svc.Leave(ctx, p.PartyID, "M")
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, got.MemberIDs)
	assert.Equal(t, []string{"M"}, h.provisioner.revoked)
	assert.Contains(t, h.notifier.kindsFor("L"), NoticeMemberLeft)
	assertInvariants(t, h.mustGet(t, p.PartyID))
}

func TestRemoveMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")
	h.addMember(t, p.PartyID, "M")

	_, err := h.svc.RemoveMember(ctx, p.PartyID, "M", "L")
	assert.ErrorIs(t, err, ErrNotLeader)
	_, err = h.svc.RemoveMember(ctx, p.PartyID, "L", "stranger")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = h.svc.RemoveMember(ctx, p.PartyID, "L", "M")
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, h.mustGet(t, p.PartyID).MemberIDs)
	assert.Contains(t, h.notifier.kindsFor("M"), NoticeMemberRemoved)
}

// Scenario D: a leader cannot remove themselves.
func TestRemoveMember_Self(t *testing.T) {
	h := newHarness(t)
	p := h.createParty(t, "L", "Raid")
	h.addMember(t, p.PartyID, "M")
	before := h.mustGet(t, p.PartyID)
	saves := h.repo.saveCount()

	_, err := h.svc.RemoveMember(context.Background(), p.PartyID, "L", "L")
	require.ErrorIs(t, err, ErrCannotRemoveSelf)
	assert.True(t, IsValidation(err))
	assert.Equal(t, before, h.mustGet(t, p.PartyID))
	assert.Equal(t, saves, h.repo.saveCount())
	assert.Empty(t, h.provisioner.revoked)
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	_, err := h.svc.Rename(ctx, p.PartyID, "M", "Other")
	assert.ErrorIs(t, err, ErrNotLeader)
	assert.True(t, IsAuthorization(err))

	_, err = h.svc.Rename(ctx, p.PartyID, "L", "   ")
	assert.ErrorIs(t, err, ErrInvalidName)
	long := make([]rune, 51)
	for i := range long {
		long[i] = 'ż'
	}
	_, err = h.svc.Rename(ctx, p.PartyID, "L", string(long))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = h.svc.Rename(ctx, p.PartyID, "L", " Raid ")
	assert.ErrorIs(t, err, ErrNameUnchanged)
	assert.Empty(t, h.provisioner.renamed)

	got, err := h.svc.Rename(ctx, p.PartyID, "L", "  Żelazna drużyna ")
	require.NoError(t, err)
	assert.Equal(t, "Żelazna drużyna", got.PartyName)
	assert.Equal(t, []string{"Żelazna drużyna"}, h.provisioner.renamed)
	assert.Equal(t, "Żelazna drużyna", h.repo.saved[p.PartyID].PartyName)
}

func TestRefreshLeaderPanel_StoresNewMessageID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")
	before := h.mustGet(t, p.PartyID).LeaderPanelMessageID

	_, err := h.svc.RefreshLeaderPanel(ctx, p.PartyID, "M")
	assert.ErrorIs(t, err, ErrNotLeader)

	got, err := h.svc.RefreshLeaderPanel(ctx, p.PartyID, "L")
	require.NoError(t, err)
	assert.NotEqual(t, before, got.LeaderPanelMessageID)
	assert.Equal(t, got.LeaderPanelMessageID, h.repo.saved[p.PartyID].LeaderPanelMessageID)
}

func TestFindJoinedParty(t *testing.T) {
	h := newHarness(t)
	a := h.createParty(t, "A", "Raid")
	b := h.createParty(t, "B", "raid")
	c := h.createParty(t, "C", "Arena")
	h.addMember(t, a.PartyID, "U")
	h.addMember(t, b.PartyID, "U")
	h.addMember(t, c.PartyID, "U")

	got, err := h.svc.FindJoinedParty("U", "ARENA")
	require.NoError(t, err)
	assert.Equal(t, c.PartyID, got.PartyID)

	got, err = h.svc.FindJoinedParty("U", b.PartyID)
	require.NoError(t, err)
	assert.Equal(t, b.PartyID, got.PartyID)

	_, err = h.svc.FindJoinedParty("U", "raid")
	var ambiguous *AmbiguousPartyError
	require.ErrorAs(t, err, &ambiguous)
	assert.ErrorIs(t, err, ErrAmbiguousParty)
	assert.Len(t, ambiguous.Candidates, 2)

	_, err = h.svc.FindJoinedParty("A", "Raid")
	assert.ErrorIs(t, err, ErrPartyNotFound)
}

func TestMembership_ConcurrentAcceptLeaveAndRemove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createParty(t, "L", "Raid")

	const n = 6
	var leaving, joining []string
	for i := range n {
		id := fmt.Sprintf("M%d", i)
		h.addMember(t, p.PartyID, id)
		leaving = append(leaving, id)
	}
	decisions := make([]*Decision, 0, n)
	for i := range n {
		id := fmt.Sprintf("U%d", i)
		d, err := h.svc.SubmitJoinRequest(ctx, p.PartyID, id)
		require.NoError(t, err)
		decisions = append(decisions, d)
		joining = append(joining, id)
	}

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for _, d := range decisions {
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.svc.ResolveJoinRequest(ctx, d.ID, "L", true); err == nil {
					accepted.Add(1)
				} else if !errors.Is(err, ErrAlreadyDecided) {
					t.Errorf("resolve %s: %v", d.ID, err)
				}
			}()
		}
	}
	for i, id := range leaving {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = h.svc.Leave(ctx, p.PartyID, id)
			} else {
				_, err = h.svc.RemoveMember(ctx, p.PartyID, "L", id)
			}
			if err != nil {
				t.Errorf("remove %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), accepted.Load())
	got := h.mustGet(t, p.PartyID)
	assertInvariants(t, got)
	assert.Empty(t, got.PendingJoinRequests)
	want := append([]string{"L"}, joining...)
	members := slices.Clone(got.MemberIDs)
	slices.Sort(members)
	slices.Sort(want)
	assert.Equal(t, want, members)

	saved := h.repo.saved[p.PartyID]
	assert.ElementsMatch(t, got.MemberIDs, saved.MemberIDs)
	assert.Empty(t, saved.PendingJoinRequests)
}
