// Package ui implements the terminal views of the radiotx CLI using bubbletea's Elm architecture.
//
// [ProgressModel] runs one sync or merge job and polls its record in the [tasks.Registry],
// drawing the percentage with bubbles/progress and the latest message in the status color.
//
// [Model] is the interactive merge flow:
//  1. [SourceListView] : pick the playlist to merge from
//  2. [TargetListView] : pick the playlist to merge into
//  3. [ConfirmView] : confirm, since the source is deleted afterwards
//  4. [MergeView] : a [ProgressModel] for the merge task
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q).
package ui
