// Package notify synthesizes the pre-notify/post-notify pseudo-action pairs
// for clones whose "notify" meta-attribute is enabled: for each start, stop,
// promote, or demote task the clone's template has actions for, one
// pre-notify and one post-notify pseudo-action are ordered around those
// actions, carrying a sorted, deduplicated list of the nodes involved as the
// notify_active_resource meta-attribute. No per-instance notify actions are
// emitted.
package notify
