package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// tx runs repository operations directly on a state. The caller holds the
// repository lock.
type tx struct {
	st *state
}

var (
	defaultEntityOrder  = []simplemedia.Order{{Field: "id"}}
	defaultBindingOrder = []simplemedia.Order{{Field: "playlist_id"}, {Field: "rank"}}
)

func bindingField(b *simplemedia.Binding, field string) string {
	switch field {
	case "playlist_id":
		return b.PlaylistID
	case "media_id":
		return b.MediaID
	case "rank":
		return b.Rank
	}
	return b.ID
}

func (t *tx) bindingsWhere(match func(*simplemedia.Binding) bool) []*simplemedia.Binding {
	var out []*simplemedia.Binding
	for _, b := range t.st.bindings {
		if match(b) {
			c := *b
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *simplemedia.Binding) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Playlist operations

func (t *tx) findPlaylist(key simplemedia.Key) *simplemedia.Playlist {
	if key.ID != "" {
		return t.st.playlists[key.ID]
	}
	for _, p := range t.st.playlists {
		if p.Name == key.Name {
			return p
		}
	}
	return nil
}

func (t *tx) playlistCopy(p *simplemedia.Playlist, include simplemedia.Include) *simplemedia.Playlist {
	c := &simplemedia.Playlist{ID: p.ID, Name: p.Name}
	if include.Bindings {
		c.Bindings = t.bindingsWhere(func(b *simplemedia.Binding) bool { return b.PlaylistID == p.ID })
	}
	return c
}

func matchPlaylist(f simplemedia.PlaylistFilter, p *simplemedia.Playlist) bool {
	return (f.ID == "" || p.ID == f.ID) && (f.Name == "" || p.Name == f.Name) && matchIDs(f.IDs, p.ID)
}

func (t *tx) CountPlaylists(ctx context.Context, filter simplemedia.PlaylistFilter) (int, error) {
	n := 0
	for _, p := range t.st.playlists {
		if matchPlaylist(filter, p) {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListPlaylists(ctx context.Context, params simplemedia.ListPlaylistsParams) ([]*simplemedia.Playlist, error) {
	var rows []*simplemedia.Playlist
	for _, p := range t.st.playlists {
		if matchPlaylist(params.Filter, p) {
			rows = append(rows, p)
		}
	}
	sortRows(rows, params.Order, defaultEntityOrder, func(p *simplemedia.Playlist, field string) string {
		if field == "name" {
			return p.Name
		}
		return p.ID
	})
	rows = page(rows, params.Limit, params.Offset)

	out := make([]*simplemedia.Playlist, 0, len(rows))
	for _, p := range rows {
		out = append(out, t.playlistCopy(p, params.Include))
	}
	return out, nil
}

func (t *tx) GetPlaylist(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (*simplemedia.Playlist, error) {
	p := t.findPlaylist(key)
	if p == nil {
		return nil, simplemedia.ErrNotFound
	}
	return t.playlistCopy(p, include), nil
}

func (t *tx) CreatePlaylist(ctx context.Context, playlist *simplemedia.Playlist) error {
	if _, exists := t.st.playlists[playlist.ID]; exists {
		return fmt.Errorf("playlist id %s: %w", playlist.ID, simplemedia.ErrDuplicate)
	}
	if t.findPlaylist(simplemedia.ByName(playlist.Name)) != nil {
		return fmt.Errorf("playlist name %s: %w", playlist.Name, simplemedia.ErrDuplicate)
	}
	t.st.playlists[playlist.ID] = &simplemedia.Playlist{ID: playlist.ID, Name: playlist.Name}
	return nil
}

func (t *tx) UpdatePlaylist(ctx context.Context, key simplemedia.Key, patch simplemedia.PlaylistPatch) (*simplemedia.Playlist, error) {
	old := t.findPlaylist(key)
	if old == nil {
		return nil, simplemedia.ErrNotFound
	}
	next := &simplemedia.Playlist{ID: old.ID, Name: old.Name}
	if patch.ID != nil {
		next.ID = *patch.ID
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}

	if next.ID != old.ID {
		if _, exists := t.st.playlists[next.ID]; exists {
			return nil, fmt.Errorf("playlist id %s: %w", next.ID, simplemedia.ErrDuplicate)
		}
	}
	if next.Name != old.Name {
		if t.findPlaylist(simplemedia.ByName(next.Name)) != nil {
			return nil, fmt.Errorf("playlist name %s: %w", next.Name, simplemedia.ErrDuplicate)
		}
	}

	delete(t.st.playlists, old.ID)
	t.st.playlists[next.ID] = next
	return &simplemedia.Playlist{ID: next.ID, Name: next.Name}, nil
}

func (t *tx) DeletePlaylist(ctx context.Context, key simplemedia.Key) (*simplemedia.Playlist, error) {
	p := t.findPlaylist(key)
	if p == nil {
		return nil, simplemedia.ErrNotFound
	}
	delete(t.st.playlists, p.ID)
	return &simplemedia.Playlist{ID: p.ID, Name: p.Name}, nil
}

// Media operations

func (t *tx) findMedia(key simplemedia.Key) *simplemedia.Media {
	if key.ID != "" {
		return t.st.media[key.ID]
	}
	for _, m := range t.st.media {
		if m.Name == key.Name {
			return m
		}
	}
	return nil
}

func (t *tx) mediaCopy(m *simplemedia.Media, include simplemedia.Include) *simplemedia.Media {
	c := &simplemedia.Media{ID: m.ID, Name: m.Name}
	if include.Bindings {
		c.Bindings = t.bindingsWhere(func(b *simplemedia.Binding) bool { return b.MediaID == m.ID })
	}
	return c
}

func matchMedia(f simplemedia.MediaFilter, m *simplemedia.Media) bool {
	return (f.ID == "" || m.ID == f.ID) && (f.Name == "" || m.Name == f.Name) && matchIDs(f.IDs, m.ID)
}

func (t *tx) CountMedia(ctx context.Context, filter simplemedia.MediaFilter) (int, error) {
	n := 0
	for _, m := range t.st.media {
		if matchMedia(filter, m) {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListMedia(ctx context.Context, params simplemedia.ListMediaParams) ([]*simplemedia.Media, error) {
	var rows []*simplemedia.Media
	for _, m := range t.st.media {
		if matchMedia(params.Filter, m) {
			rows = append(rows, m)
		}
	}
	sortRows(rows, params.Order, defaultEntityOrder, func(m *simplemedia.Media, field string) string {
		if field == "name" {
			return m.Name
		}
		return m.ID
	})
	rows = page(rows, params.Limit, params.Offset)

	out := make([]*simplemedia.Media, 0, len(rows))
	for _, m := range rows {
		out = append(out, t.mediaCopy(m, params.Include))
	}
	return out, nil
}

func (t *tx) GetMedia(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (*simplemedia.Media, error) {
	m := t.findMedia(key)
	if m == nil {
		return nil, simplemedia.ErrNotFound
	}
	return t.mediaCopy(m, include), nil
}

func (t *tx) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	if _, exists := t.st.media[media.ID]; exists {
		return fmt.Errorf("media id %s: %w", media.ID, simplemedia.ErrDuplicate)
	}
	if t.findMedia(simplemedia.ByName(media.Name)) != nil {
		return fmt.Errorf("media name %s: %w", media.Name, simplemedia.ErrDuplicate)
	}
	t.st.media[media.ID] = &simplemedia.Media{ID: media.ID, Name: media.Name}
	return nil
}

func (t *tx) UpdateMedia(ctx context.Context, key simplemedia.Key, patch simplemedia.MediaPatch) (*simplemedia.Media, error) {
	old := t.findMedia(key)
	if old == nil {
		return nil, simplemedia.ErrNotFound
	}
	next := &simplemedia.Media{ID: old.ID, Name: old.Name}
	if patch.ID != nil {
		next.ID = *patch.ID
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}

	if next.ID != old.ID {
		if _, exists := t.st.media[next.ID]; exists {
			return nil, fmt.Errorf("media id %s: %w", next.ID, simplemedia.ErrDuplicate)
		}
	}
	if next.Name != old.Name {
		if t.findMedia(simplemedia.ByName(next.Name)) != nil {
			return nil, fmt.Errorf("media name %s: %w", next.Name, simplemedia.ErrDuplicate)
		}
	}

	delete(t.st.media, old.ID)
	t.st.media[next.ID] = next
	return &simplemedia.Media{ID: next.ID, Name: next.Name}, nil
}

func (t *tx) DeleteMedia(ctx context.Context, key simplemedia.Key) (*simplemedia.Media, error) {
	m := t.findMedia(key)
	if m == nil {
		return nil, simplemedia.ErrNotFound
	}
	delete(t.st.media, m.ID)
	return &simplemedia.Media{ID: m.ID, Name: m.Name}, nil
}

// Binding operations

func (t *tx) findBinding(key simplemedia.BindingKey) *simplemedia.Binding {
	if key.ID != "" {
		return t.st.bindings[key.ID]
	}
	for _, b := range t.st.bindings {
		if b.PlaylistID == key.PlaylistID && b.Rank == key.Rank {
			return b
		}
	}
	return nil
}

func matchBinding(f simplemedia.BindingFilter, b *simplemedia.Binding) bool {
	return (f.ID == "" || b.ID == f.ID) &&
		(f.PlaylistID == "" || b.PlaylistID == f.PlaylistID) &&
		(f.MediaID == "" || b.MediaID == f.MediaID) &&
		matchIDs(f.IDs, b.ID)
}

func (t *tx) CountBindings(ctx context.Context, filter simplemedia.BindingFilter) (int, error) {
	n := 0
	for _, b := range t.st.bindings {
		if matchBinding(filter, b) {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListBindings(ctx context.Context, params simplemedia.ListBindingsParams) ([]*simplemedia.Binding, error) {
	rows := t.bindingsWhere(func(b *simplemedia.Binding) bool { return matchBinding(params.Filter, b) })
	sortRows(rows, params.Order, defaultBindingOrder, bindingField)
	return page(rows, params.Limit, params.Offset), nil
}

func (t *tx) GetBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	b := t.findBinding(key)
	if b == nil {
		return nil, simplemedia.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (t *tx) insertBinding(b *simplemedia.Binding) error {
	if _, exists := t.st.bindings[b.ID]; exists {
		return fmt.Errorf("binding id %s: %w", b.ID, simplemedia.ErrDuplicate)
	}
	if t.findBinding(simplemedia.ByPlaylistRank(b.PlaylistID, b.Rank)) != nil {
		return fmt.Errorf("binding rank %s in playlist %s: %w", b.Rank, b.PlaylistID, simplemedia.ErrDuplicate)
	}
	c := *b
	t.st.bindings[b.ID] = &c
	return nil
}

func (t *tx) CreateBinding(ctx context.Context, binding *simplemedia.Binding) error {
	return t.insertBinding(binding)
}

func (t *tx) CreateBindings(ctx context.Context, bindings []*simplemedia.Binding) error {
	for _, b := range bindings {
		if err := t.insertBinding(b); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) UpdateBinding(ctx context.Context, key simplemedia.BindingKey, patch simplemedia.BindingPatch) (*simplemedia.Binding, error) {
	old := t.findBinding(key)
	if old == nil {
		return nil, simplemedia.ErrNotFound
	}
	next := *old
	if patch.PlaylistID != nil {
		next.PlaylistID = *patch.PlaylistID
	}
	if patch.MediaID != nil {
		next.MediaID = *patch.MediaID
	}
	if patch.Rank != nil {
		next.Rank = *patch.Rank
	}

	delete(t.st.bindings, old.ID)
	if err := t.insertBinding(&next); err != nil {
		t.st.bindings[old.ID] = old
		return nil, err
	}
	return &next, nil
}

func (t *tx) DeleteBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	b := t.findBinding(key)
	if b == nil {
		return nil, simplemedia.ErrNotFound
	}
	delete(t.st.bindings, b.ID)
	c := *b
	return &c, nil
}

func (t *tx) DeleteBindings(ctx context.Context, filter simplemedia.BindingFilter) ([]*simplemedia.Binding, error) {
	deleted := t.bindingsWhere(func(b *simplemedia.Binding) bool { return matchBinding(filter, b) })
	for _, b := range deleted {
		delete(t.st.bindings, b.ID)
	}
	return deleted, nil
}
