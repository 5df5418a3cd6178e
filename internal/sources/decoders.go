// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/models"
)

const apiPageSize = "50"

// guardianDecoder speaks a section/topic content API: the key goes in the
// api-key query parameter and results sit under response.results.
//
// A query of the form "section:books" selects a section; anything else is a
// free-text search.
type guardianDecoder struct{}

type guardianEnvelope struct {
	Response struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Results []struct {
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			WebPublicationDate string `json:"webPublicationDate"`
			SectionName        string `json:"sectionName"`
			Fields             struct {
				TrailText string `json:"trailText"`
				BodyText  string `json:"bodyText"`
			} `json:"fields"`
			Tags []struct {
				WebTitle string `json:"webTitle"`
			} `json:"tags"`
		} `json:"results"`
	} `json:"response"`
}

func (guardianDecoder) request(ctx context.Context, endpoint, query, key string) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	v := u.Query()
	if section, ok := strings.CutPrefix(query, "section:"); ok {
		v.Set("section", section)
	} else {
		v.Set("q", query)
	}
	v.Set("api-key", key)
	v.Set("show-fields", "trailText")
	v.Set("show-tags", "keyword")
	v.Set("order-by", "newest")
	v.Set("page-size", apiPageSize)
	u.RawQuery = v.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

func (guardianDecoder) decode(body []byte) ([]models.RawItem, error) {
	var env guardianEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode guardian response: %w", err)
	}
	if env.Response.Status != "" && env.Response.Status != "ok" {
		return nil, fmt.Errorf("guardian response status %q: %s", env.Response.Status, env.Response.Message)
	}

	items := make([]models.RawItem, 0, len(env.Response.Results))
	for _, r := range env.Response.Results {
		if r.WebURL == "" {
			continue
		}
		cats := make([]string, 0, len(r.Tags)+1)
		if r.SectionName != "" {
			cats = append(cats, r.SectionName)
		}
		for _, t := range r.Tags {
			cats = append(cats, t.WebTitle)
		}
		desc := r.Fields.TrailText
		if desc == "" {
			desc = r.Fields.BodyText
		}
		items = append(items, models.RawItem{
			Title:       r.WebTitle,
			Link:        r.WebURL,
			Description: desc,
			Published:   r.WebPublicationDate,
			Categories:  cats,
		})
	}
	return items, nil
}

// newsAPIDecoder speaks a headline search API: the key goes in the X-Api-Key
// header and results sit under articles.
type newsAPIDecoder struct{}

type newsAPIEnvelope struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (newsAPIDecoder) request(ctx context.Context, endpoint, query, key string) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	v := u.Query()
	v.Set("q", query)
	v.Set("language", "en")
	v.Set("sortBy", "publishedAt")
	v.Set("pageSize", apiPageSize)
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", key)
	return req, nil
}

func (newsAPIDecoder) decode(body []byte) ([]models.RawItem, error) {
	var env newsAPIEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if env.Status != "" && env.Status != "ok" {
		return nil, fmt.Errorf("newsapi response %s: %s", env.Code, env.Message)
	}

	items := make([]models.RawItem, 0, len(env.Articles))
	for _, a := range env.Articles {
		if a.URL == "" {
			continue
		}
		desc := a.Description
		if desc == "" {
			desc = a.Content
		}
		items = append(items, models.RawItem{
			Title:       a.Title,
			Link:        a.URL,
			Description: desc,
			Published:   a.PublishedAt,
		})
	}
	return items, nil
}
