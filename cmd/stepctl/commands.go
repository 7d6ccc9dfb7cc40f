package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/stepple/internal/friends"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/reconcile"
)

var (
	forceRefetch bool
	backfillDays int
	sampleOrigin string

	rootCmd = &cobra.Command{
		Use:           "stepctl",
		Short:         "Device-side step reconciler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Re-check the health platform, re-read today and backfill the trailing window",
		Args:  cobra.NoArgs,
		RunE:  withApp(runRefresh),
	}
	resolveCmd = &cobra.Command{
		Use:   "resolve [date]",
		Short: "Resolve the step count for one day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withApp(runResolve),
	}
	backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Fetch every uncached day in the trailing window",
		Args:  cobra.NoArgs,
		RunE:  withApp(runBackfill),
	}
	permissionCmd = &cobra.Command{
		Use:   "permission",
		Short: "Manage the step read permission",
	}
	permissionRequestCmd = &cobra.Command{
		Use:   "request",
		Short: "Request the step read permission",
		Args:  cobra.NoArgs,
		RunE:  withApp(runPermissionRequest),
	}
	permissionRevokeCmd = &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the step read permission",
		Args:  cobra.NoArgs,
		RunE:  withApp(runPermissionRevoke),
	}
	samplesCmd = &cobra.Command{
		Use:   "samples",
		Short: "Manage recorded step samples",
	}
	samplesAddCmd = &cobra.Command{
		Use:   "add <start> <end> <count>",
		Short: "Record a step sample; times are RFC 3339",
		Args:  cobra.ExactArgs(3),
		RunE:  withApp(runSamplesAdd),
	}
	nameCmd = &cobra.Command{
		Use:   "name <name>",
		Short: "Set the display name shared with friends",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runName),
	}
	inviteCmd = &cobra.Command{
		Use:   "invite",
		Short: "Print this device's friend invite link",
		Args:  cobra.NoArgs,
		RunE:  withApp(runInvite),
	}
	friendsCmd = &cobra.Command{
		Use:   "friends",
		Short: "Manage friends",
	}
	friendsAddCmd = &cobra.Command{
		Use:   "add <link>",
		Short: "Add a friend from an invite link",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runFriendsAdd),
	}
	friendsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List friends",
		Args:  cobra.NoArgs,
		RunE:  withApp(runFriendsList),
	}
	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard [date]",
		Short: "Show friends' step counts for a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withApp(runLeaderboard),
	}
)

func init() {
	resolveCmd.Flags().BoolVar(&forceRefetch, "force", false, "re-read the platform even when cached")
	backfillCmd.Flags().IntVar(&backfillDays, "days", reconcile.DefaultBackfillDays, "number of trailing days to check")
	samplesAddCmd.Flags().StringVar(&sampleOrigin, "origin", "stepctl", "data origin recorded with the sample")

	permissionCmd.AddCommand(permissionRequestCmd, permissionRevokeCmd)
	samplesCmd.AddCommand(samplesAddCmd)
	friendsCmd.AddCommand(friendsAddCmd, friendsListCmd)
	rootCmd.AddCommand(refreshCmd, resolveCmd, backfillCmd, permissionCmd, samplesCmd,
		nameCmd, inviteCmd, friendsCmd, leaderboardCmd)
}

func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func printState(cmd *cobra.Command, st reconcile.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, reconcile.FormatDate(st.CurrentDate, time.Now()))
	if st.HasSteps {
		fmt.Fprintf(out, "%d steps\n", st.Steps)
	}
	if st.Message != "" {
		fmt.Fprintln(out, st.Message)
	}
}

func runRefresh(cmd *cobra.Command, a *app, _ []string) error {
	st, err := a.rec.RefreshCapabilityState(cmd.Context())
	if err != nil {
		return err
	}
	printState(cmd, st)
	return nil
}

func runResolve(cmd *cobra.Command, a *app, args []string) error {
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	day, err := parseDay(arg)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", arg, err)
	}

	res, err := a.rec.ResolveStepsForDay(cmd.Context(), day, reconcile.Options{ForceRefetch: forceRefetch, SkipDisplay: true})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s", res.DateID, res.Outcome)
	if res.HasCount {
		fmt.Fprintf(out, ", %d steps", res.Count)
	}
	fmt.Fprintln(out)
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
	return nil
}

func runBackfill(cmd *cobra.Command, a *app, _ []string) error {
	report, err := a.rec.BackfillTrailingWindow(cmd.Context(), backfillDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "checked=%d fetched=%d skipped=%d failed=%d\n",
		report.Checked, report.Fetched, report.Skipped, report.Failed)
	return nil
}

func runPermissionRequest(cmd *cobra.Command, a *app, _ []string) error {
	st, err := a.rec.RequestPermission(cmd.Context())
	if err != nil {
		return err
	}
	printState(cmd, st)
	return nil
}

func runPermissionRevoke(cmd *cobra.Command, a *app, _ []string) error {
	if err := a.records.SetGranted(cmd.Context(), false); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "permission revoked")
	return nil
}

func runSamplesAdd(cmd *cobra.Command, a *app, args []string) error {
	start, err := time.Parse(time.RFC3339, args[0])
	if err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, args[1])
	if err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}
	count, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}
	if err := a.records.AddSample(cmd.Context(), start, end, count, sampleOrigin); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recorded %d steps on %s\n", count, models.DateID(start.Local()))
	return nil
}

func runName(cmd *cobra.Command, a *app, args []string) error {
	st, err := a.rec.SetUserName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "name set to %s (%s)\n", st.UserName, st.UserID)
	return nil
}

func runInvite(cmd *cobra.Command, a *app, _ []string) error {
	uid, err := a.rec.EnsureUserID(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), friends.InviteLink(uid))
	return nil
}

func runFriendsAdd(cmd *cobra.Command, a *app, args []string) error {
	uid, err := a.rec.EnsureUserID(cmd.Context())
	if err != nil {
		return err
	}
	friend, status, err := a.friends.AddFromLink(cmd.Context(), args[0], uid)
	if err != nil {
		return err
	}
	switch status {
	case friends.AlreadyFriends:
		fmt.Fprintf(cmd.OutOrStdout(), "already friends with %s\n", friend.Name)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", friend.Name)
	}
	return nil
}

func runFriendsList(cmd *cobra.Command, a *app, _ []string) error {
	list, err := a.friends.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, f := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.ID, f.Name)
	}
	return nil
}

func runLeaderboard(cmd *cobra.Command, a *app, args []string) error {
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	day, err := parseDay(arg)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", arg, err)
	}
	entries, err := a.friends.Leaderboard(cmd.Context(), models.DateID(day))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Steps == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t-\n", e.Friend.Name)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", e.Friend.Name, *e.Steps)
	}
	return nil
}
