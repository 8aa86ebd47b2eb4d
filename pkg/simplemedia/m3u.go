package simplemedia

import "strings"

// MediaContentURL returns the content URL of a media under baseURL.
func MediaContentURL(baseURL, mediaID string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + mediaID + "/content"
}

// RenderM3U renders one content URL per binding, in the given order, each
// terminated by a newline.
func RenderM3U(baseURL string, bindings []*Binding) string {
	var sb strings.Builder
	for _, b := range bindings {
		sb.WriteString(MediaContentURL(baseURL, b.MediaID))
		sb.WriteByte('\n')
	}
	return sb.String()
}
