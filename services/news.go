package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"sync"
	"time"

	"anime-loyalty-system/models"
	"anime-loyalty-system/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const anilistQuery = `
  query {
    trending: Page(page: 1, perPage: 10) {
      media(sort: TRENDING_DESC, type: ANIME) {
        id
        title { romaji english }
        description
        coverImage { extraLarge large medium }
        bannerImage
        startDate { year month day }
        meanScore
        studios(isMain: true) { nodes { name } }
        genres
        episodes
      }
    }
    upcoming: Page(page: 1, perPage: 10) {
      media(sort: POPULARITY_DESC, type: ANIME, status: NOT_YET_RELEASED) {
        id
        title { romaji english }
        description
        coverImage { extraLarge large medium }
        bannerImage
        startDate { year month day }
        studios(isMain: true) { nodes { name } }
        genres
      }
    }
  }
`

const fallbackImage = "https://images.unsplash.com/photo-1578632767115-351597cf2477?w=1920&q=80"

const fetchAttempts = 3

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	imgSrcPattern  = regexp.MustCompile(`<img[^>]+src="([^">]+\.(?:jpg|jpeg|png|webp))"`)
)

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
	Description string `json:"description"`
	CoverImage  struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Medium     string `json:"medium"`
	} `json:"coverImage"`
	BannerImage string `json:"bannerImage"`
	StartDate   struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"startDate"`
	MeanScore int `json:"meanScore"`
	Studios   struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
	Genres   []string `json:"genres"`
	Episodes int      `json:"episodes"`
}

type anilistResponse struct {
	Data struct {
		Trending struct {
			Media []anilistMedia `json:"media"`
		} `json:"trending"`
		Upcoming struct {
			Media []anilistMedia `json:"media"`
		} `json:"upcoming"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type rssItem struct {
	GUID        string `json:"guid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
}

type rssResponse struct {
	Items []rssItem `json:"items"`
}

// NewsService aggregates third-party anime feeds (AniList GraphQL + the ANN
// RSS proxy) into a normalized in-memory cache. Refreshed on a schedule; read
// paths never touch the network.
type NewsService struct {
	AniListURL  string
	RSSProxyURL string
	Client      *http.Client

	mu        sync.RWMutex
	news      []models.NewsItem
	facts     []models.AnimeFact
	fetchedAt time.Time
}

func NewNewsService(anilistURL, rssProxyURL string) *NewsService {
	return &NewsService{
		AniListURL:  anilistURL,
		RSSProxyURL: rssProxyURL,
		Client:      utils.HTTPClient,
	}
}

// Refresh pulls both feeds and swaps the cache. Either feed failing alone
// still refreshes the other.
func (s *NewsService) Refresh(ctx context.Context) error {
	anilist, anilistErr := s.fetchAniList(ctx)
	ann, annErr := s.fetchANN(ctx)
	if anilistErr != nil && annErr != nil {
		return fmt.Errorf("all feeds failed: anilist: %v; ann: %v", anilistErr, annErr)
	}

	var news []models.NewsItem
	var facts []models.AnimeFact
	if anilistErr == nil {
		for _, m := range anilist.Data.Trending.Media {
			news = append(news, newsFromMedia(m, fmt.Sprintf("%d", m.ID), "AniList Trending"))
		}
		for _, m := range anilist.Data.Upcoming.Media {
			news = append(news, newsFromMedia(m, fmt.Sprintf("upcoming-%d", m.ID), "AniList Upcoming"))
		}
		facts = buildFacts(anilist.Data.Trending.Media)
	} else {
		logrus.WithError(anilistErr).Warn("news: AniList refresh failed, keeping RSS only")
	}
	if annErr == nil {
		news = append(news, newsFromRSS(ann.Items)...)
	} else {
		logrus.WithError(annErr).Warn("news: ANN refresh failed, keeping AniList only")
	}

	sort.Slice(news, func(i, j int) bool { return news[i].Date > news[j].Date })

	s.mu.Lock()
	s.news = news
	if facts != nil {
		s.facts = facts
	}
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	logrus.Infof("news: cache refreshed, %d items, %d facts", len(news), len(facts))
	return nil
}

// News returns the cached articles, newest first.
func (s *NewsService) News() []models.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.NewsItem, len(s.news))
	copy(out, s.news)
	return out
}

// Facts returns the cached trivia cards.
func (s *NewsService) Facts() []models.AnimeFact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnimeFact, len(s.facts))
	copy(out, s.facts)
	return out
}

// FetchedAt reports when the cache was last refreshed.
func (s *NewsService) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *NewsService) fetchAniList(ctx context.Context) (*anilistResponse, error) {
	body, err := json.Marshal(map[string]string{"query": anilistQuery})
	if err != nil {
		return nil, err
	}

	raw, err := s.getWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.AniListURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var out anilistResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode AniList response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("anilist: %s", out.Errors[0].Message)
	}
	return &out, nil
}

func (s *NewsService) fetchANN(ctx context.Context) (*rssResponse, error) {
	raw, err := s.getWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, s.RSSProxyURL, nil)
	})
	if err != nil {
		return nil, err
	}

	var out rssResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode RSS proxy response: %w", err)
	}
	return &out, nil
}

// getWithRetry performs an outbound fetch with bounded retries on transient
// failures.
func (s *NewsService) getWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := s.Client.Do(req)
		if err == nil {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr == nil && resp.StatusCode == http.StatusOK {
				return body, nil
			}
			if readErr != nil {
				lastErr = readErr
			} else {
				lastErr = fmt.Errorf("feed returned status %d", resp.StatusCode)
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func newsFromMedia(m anilistMedia, id, source string) models.NewsItem {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	desc := htmlTagPattern.ReplaceAllString(m.Description, "")
	if desc == "" {
		desc = "No description available"
	}
	return models.NewsItem{
		ID:          id,
		Title:       title,
		Description: desc,
		ImageURL:    mediaImage(m),
		Link:        fmt.Sprintf("https://anilist.co/anime/%d", m.ID),
		Date:        mediaDate(m),
		Source:      source,
	}
}

func newsFromRSS(items []rssItem) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if item.Title == "" || (item.Content == "" && item.Description == "") {
			continue
		}
		id := item.GUID
		if id == "" {
			id = uuid.NewString()
		}
		image := extractImage(item.Content)
		if image == "" {
			image = extractImage(item.Description)
		}
		if image == "" {
			image = fallbackImage
		}
		date := item.PubDate
		if parsed, err := time.Parse("2006-01-02 15:04:05", item.PubDate); err == nil {
			date = parsed.Format(time.RFC3339)
		}
		out = append(out, models.NewsItem{
			ID:          id,
			Title:       item.Title,
			Description: htmlTagPattern.ReplaceAllString(item.Description, ""),
			ImageURL:    image,
			Link:        item.Link,
			Date:        date,
			Source:      "Anime News Network",
		})
	}
	return out
}

func buildFacts(media []anilistMedia) []models.AnimeFact {
	facts := make([]models.AnimeFact, 0, len(media))
	for _, m := range media {
		title := m.Title.English
		if title == "" {
			title = m.Title.Romaji
		}
		desc := htmlTagPattern.ReplaceAllString(m.Description, "")
		short := desc
		if len(short) > 160 {
			short = short[:160] + "…"
		}

		var sections []models.FactSection
		if len(m.Studios.Nodes) > 0 {
			sections = append(sections, models.FactSection{Heading: "Studio", Content: m.Studios.Nodes[0].Name})
		}
		if len(m.Genres) > 0 {
			content := m.Genres[0]
			for _, g := range m.Genres[1:] {
				content += ", " + g
			}
			sections = append(sections, models.FactSection{Heading: "Genres", Content: content})
		}
		if m.MeanScore > 0 {
			sections = append(sections, models.FactSection{Heading: "Mean Score", Content: fmt.Sprintf("%d / 100", m.MeanScore)})
		}
		if m.Episodes > 0 {
			sections = append(sections, models.FactSection{Heading: "Episodes", Content: fmt.Sprintf("%d", m.Episodes)})
		}

		facts = append(facts, models.AnimeFact{
			ID:        fmt.Sprintf("fact-%d", m.ID),
			AnimeID:   m.ID,
			Title:     title,
			ImageURL:  mediaImage(m),
			ShortFact: short,
			Sections:  sections,
		})
	}
	return facts
}

func mediaImage(m anilistMedia) string {
	switch {
	case m.CoverImage.ExtraLarge != "":
		return m.CoverImage.ExtraLarge
	case m.CoverImage.Large != "":
		return m.CoverImage.Large
	case m.CoverImage.Medium != "":
		return m.CoverImage.Medium
	case m.BannerImage != "":
		return m.BannerImage
	}
	return fallbackImage
}

func mediaDate(m anilistMedia) string {
	if m.StartDate.Year == 0 || m.StartDate.Month == 0 || m.StartDate.Day == 0 {
		return time.Now().Format(time.RFC3339)
	}
	return time.Date(m.StartDate.Year, time.Month(m.StartDate.Month), m.StartDate.Day, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func extractImage(content string) string {
	match := imgSrcPattern.FindStringSubmatch(content)
	if len(match) > 1 {
		return match[1]
	}
	return ""
}
