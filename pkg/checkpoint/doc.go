// Package checkpoint persists the collected ID sets of an interrupted scan so
// that a later run can skip straight to hydration.
//
// Checkpoints live under the platform data directory
// (~/.local/share/followscope/checkpoints on Linux) as one JSON file per
// account and are written atomically through a temporary file and rename.
//
//	mgr, _ := checkpoint.NewManager(userID, "")
//	cp, _ := mgr.Load()
//	if cp != nil && cp.Phase == checkpoint.PhaseIDsCollected {
//		// reuse cp.FollowingIDs and cp.FollowerIDs
//	}
package checkpoint
