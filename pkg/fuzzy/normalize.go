// Package fuzzy turns noisy video titles into track search queries and scores string similarity.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const artistSongSeparator = " - "

var (
	bracketRegex    = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	noiseWordRegex  = regexp.MustCompile(`(?i)\b(?:music video|official|video|audio|lyrics|hd|4k|mv)\b`)
	noiseFeatRegex  = regexp.MustCompile(`(?i)\b(?:ft|feat)\.`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	camelCaseRegex  = regexp.MustCompile(`([a-z])([A-Z])`)
)

// TrackQuery is the search input derived from a published title.
type TrackQuery struct {
	Song          string
	Artist        string
	OriginalTitle string
	SearchQuery   string
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// CleanTitle strips bracketed segments and noise tokens such as "official" or "lyrics".
func (n *Normalizer) CleanTitle(title string) string {
	cleaned := norm.NFKC.String(title)
	cleaned = bracketRegex.ReplaceAllString(cleaned, " ")
	cleaned = noiseWordRegex.ReplaceAllString(cleaned, " ")
	cleaned = noiseFeatRegex.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, " -|:")
}

// BuildQuery derives song, artist and the "{song} {artist}" query from a title and uploader.
//
// Only the literal " - " separator splits artist from song, and only once; titles using
// other dash variants fall back to the uploader as artist.
func (n *Normalizer) BuildQuery(title, uploader string) TrackQuery {
	cleaned := n.CleanTitle(title)

	q := TrackQuery{OriginalTitle: title}
	if strings.Contains(cleaned, artistSongSeparator) {
		parts := strings.SplitN(cleaned, artistSongSeparator, 2)
		q.Artist = strings.TrimSpace(parts[0])
		q.Song = strings.TrimSpace(parts[1])
	} else {
		q.Artist = n.ArtistFromUploader(uploader)
		q.Song = cleaned
	}

	q.SearchQuery = strings.TrimSpace(q.Song + " " + q.Artist)
	return q
}

// ArtistFromUploader turns channel names like "RickAstleyVEVO" or "Artist - Topic" into artist names.
func (n *Normalizer) ArtistFromUploader(uploader string) string {
	uploader = strings.TrimSpace(uploader)
	if strings.HasSuffix(uploader, "VEVO") {
		return camelCaseRegex.ReplaceAllString(strings.TrimSuffix(uploader, "VEVO"), "$1 $2")
	}
	return strings.TrimSuffix(uploader, " - Topic")
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " vs ", " vs. ")

	return artist
}

func (n *Normalizer) NormalizeTitle(title string) string {
	return n.basicNormalize(n.CleanTitle(title))
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// CalculateSimilarity returns the longest-common-subsequence ratio of two normalized strings.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	s1, s2 = n.basicNormalize(s1), n.basicNormalize(s2)
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return float64(n.longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

func (norm *Normalizer) longestCommonSubsequence(s1, s2 string) int {
	m, n := len(s1), len(s2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
