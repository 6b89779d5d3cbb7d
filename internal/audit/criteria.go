package audit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/webgrade/webgrade/internal/page"
	"github.com/webgrade/webgrade/internal/webclient"
)

// securityHeaders is the fixed checklist, worth 10 points each.
var securityHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-content-type-options",
	"x-frame-options",
	"referrer-policy",
	"permissions-policy",
}

// deprecatedTags is the fixed denylist for the best-practices scorer.
var deprecatedTags = []string{
	"font", "center", "marquee", "blink", "big", "strike", "tt", "frame", "frameset",
}

type step struct {
	limit float64
	score float64
}

// stepScore walks a monotone breakpoint table (smaller input is better) and
// returns the score of the first step the value fits under, or floor.
func stepScore(value float64, steps []step, floor float64) float64 {
	for _, s := range steps {
		if value <= s.limit {
			return s.score
		}
	}
	return floor
}

// ─── Performance ────────────────────────────────────────────────────────

// ScorePerformance rates response time, payload size and the estimated
// number of external sub-resource requests, combined 0.55/0.25/0.20.
func ScorePerformance(res *webclient.FetchResult, doc page.Document) CriterionResult {
	elapsed := 0.0
	sizeKB := 0.0
	if res != nil {
		elapsed = res.ElapsedSeconds
		sizeKB = float64(res.BodySizeBytes) / 1024
	}
	requests := estimatedRequests(doc)

	responseScore := stepScore(elapsed, []step{
		{0.5, 100}, {1.0, 90}, {2.0, 75}, {3.0, 55}, {5.0, 35},
	}, 15)
	sizeScore := stepScore(sizeKB, []step{
		{256, 100}, {512, 90}, {1024, 75}, {2048, 55}, {4096, 35},
	}, 15)
	requestScore := stepScore(float64(requests), []step{
		{20, 100}, {40, 85}, {60, 70}, {80, 55}, {120, 35},
	}, 15)

	score := 0.55*responseScore + 0.25*sizeScore + 0.20*requestScore

	notes := []string{}
	if elapsed > 2.0 {
		notes = append(notes, fmt.Sprintf("Slow response time: %.2fs", elapsed))
	}
	if sizeKB > 2048 {
		notes = append(notes, fmt.Sprintf("Large HTML payload: %.0f KB", sizeKB))
	}
	if requests > 80 {
		notes = append(notes, fmt.Sprintf("High estimated request count: %d", requests))
	}

	return CriterionResult{
		Score:  clamp100(round2(score)),
		Method: MethodLocalHeuristics,
		Details: map[string]any{
			"response_time_s":    round2(elapsed),
			"response_score":     responseScore,
			"html_size_kb":       round2(sizeKB),
			"size_score":         sizeScore,
			"estimated_requests": requests,
			"request_score":      requestScore,
		},
		Notes: notes,
	}
}

// estimatedRequests counts sub-resources the browser would fetch: scripts,
// images and iframes with a src, plus stylesheet links.
func estimatedRequests(doc page.Document) int {
	hasSrc := func(n page.Node) bool {
		src, ok := n.Attr("src")
		return ok && strings.TrimSpace(src) != ""
	}
	count := len(doc.FindAll("script", hasSrc)) +
		len(doc.FindAll("img", hasSrc)) +
		len(doc.FindAll("iframe", hasSrc))
	count += len(doc.FindAll("link", func(n page.Node) bool {
		rel, _ := n.Attr("rel")
		href, ok := n.Attr("href")
		return strings.EqualFold(strings.TrimSpace(rel), "stylesheet") &&
			ok && strings.TrimSpace(href) != ""
	}))
	return count
}

// ─── Security ───────────────────────────────────────────────────────────

// ScoreSecurity rates transport scheme, the six-header checklist and cookie
// flags out of 100 achievable points.
func ScoreSecurity(res *webclient.FetchResult, _ page.Document) CriterionResult {
	points := 0.0
	notes := []string{}
	details := map[string]any{}

	https := res != nil && strings.HasPrefix(strings.ToLower(res.FinalURL), "https://")
	if https {
		points += 20
	} else {
		notes = append(notes, "Page is not served over HTTPS")
	}
	details["https"] = https

	present := []string{}
	missing := []string{}
	for _, header := range securityHeaders {
		if res.HasHeader(header) {
			points += 10
			present = append(present, header)
		} else {
			missing = append(missing, header)
			notes = append(notes, "Missing security header: "+header)
		}
	}
	details["headers_present"] = present
	details["headers_missing"] = missing

	var cookies []string
	if res != nil {
		cookies = res.SetCookies
	}
	if len(cookies) == 0 {
		points += 20
		details["cookies"] = 0
	} else {
		details["cookies"] = len(cookies)
		if allCookiesFlagged(cookies, "secure") {
			points += 10
		} else {
			notes = append(notes, "Cookies missing the Secure flag")
		}
		if allCookiesFlagged(cookies, "httponly") {
			points += 10
		} else {
			notes = append(notes, "Cookies missing the HttpOnly flag")
		}
	}

	return CriterionResult{
		Score:   clamp100(round2(points)),
		Method:  MethodLocalHeuristics,
		Details: details,
		Notes:   notes,
	}
}

// allCookiesFlagged reports whether every Set-Cookie value carries the given
// attribute name.
func allCookiesFlagged(cookies []string, flag string) bool {
	for _, raw := range cookies {
		found := false
		for _, part := range strings.Split(raw, ";")[1:] {
			name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
			if strings.EqualFold(name, flag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ─── SEO ────────────────────────────────────────────────────────────────

// ScoreSEO awards points for the usual discoverability signals: title and
// description lengths, canonical/robots/lang declarations, heading shape,
// image alt coverage and structured data.
func ScoreSEO(_ *webclient.FetchResult, doc page.Document) CriterionResult {
	points := 0.0
	notes := []string{}
	details := map[string]any{}

	// Lengths are character counts, not bytes; accented text must not
	// shift the boundaries.
	title := firstText(doc, "title")
	titleLen := utf8.RuneCountInString(title)
	switch {
	case titleLen >= 10 && titleLen <= 60:
		points += 20
	case titleLen > 0:
		points += 10
		notes = append(notes, fmt.Sprintf("Title length %d is outside the 10-60 range", titleLen))
	default:
		notes = append(notes, "Missing <title>")
	}
	details["title_length"] = titleLen

	desc := metaContent(doc, "description")
	descLen := utf8.RuneCountInString(desc)
	switch {
	case descLen >= 50 && descLen <= 160:
		points += 20
	case descLen > 0:
		points += 10
		notes = append(notes, fmt.Sprintf("Meta description length %d is outside the 50-160 range", descLen))
	default:
		notes = append(notes, "Missing meta description")
	}
	details["description_length"] = descLen

	if hasLinkRel(doc, "canonical") {
		points += 10
	} else {
		notes = append(notes, "Missing canonical link")
	}
	if hasMetaNamed(doc, "robots") {
		points += 10
	} else {
		notes = append(notes, "Missing robots meta tag")
	}
	if htmlLang(doc) != "" {
		points += 10
	} else {
		notes = append(notes, "Missing lang attribute on <html>")
	}

	h1s := len(doc.FindAll("h1", nil))
	details["h1_count"] = h1s
	switch {
	case h1s == 1:
		points += 15
	case h1s > 1:
		points += 8
		notes = append(notes, fmt.Sprintf("Multiple h1 headings: %d", h1s))
	default:
		notes = append(notes, "Missing h1 heading")
	}

	altRatio := imageAltCoverage(doc)
	details["image_alt_coverage"] = round2(altRatio)
	switch {
	case altRatio >= 0.9:
		points += 10
	case altRatio >= 0.7:
		points += 6
		notes = append(notes, "Some images are missing alt text")
	case altRatio > 0:
		points += 3
		notes = append(notes, "Most images are missing alt text")
	default:
		notes = append(notes, "No images have alt text")
	}

	if len(doc.FindAll("script", func(n page.Node) bool {
		typ, _ := n.Attr("type")
		return strings.EqualFold(strings.TrimSpace(typ), "application/ld+json")
	})) > 0 {
		points += 5
	} else {
		notes = append(notes, "No structured data (application/ld+json) found")
	}

	return CriterionResult{
		Score:   clamp100(round2(points)),
		Method:  MethodLocalHeuristics,
		Details: details,
		Notes:   notes,
	}
}

// ─── Accessibility ──────────────────────────────────────────────────────

// ScoreAccessibility is a weighted sum of five 20-point axes: lang
// declaration, image alt coverage, form-field label coverage, interactive
// control label coverage and heading-order sanity. Pages that simply lack a
// feature get full credit on that axis.
func ScoreAccessibility(_ *webclient.FetchResult, doc page.Document) CriterionResult {
	notes := []string{}

	langRatio := 0.0
	if htmlLang(doc) != "" {
		langRatio = 1.0
	} else {
		notes = append(notes, "Missing lang attribute on <html>")
	}

	altRatio := imageAltCoverage(doc)
	if altRatio < 1.0 {
		notes = append(notes, "Images without alt text reduce screen-reader usability")
	}

	labelRatio := formLabelCoverage(doc)
	if labelRatio < 1.0 {
		notes = append(notes, "Form fields without labels")
	}

	controlRatio := controlLabelCoverage(doc)
	if controlRatio < 1.0 {
		notes = append(notes, "Interactive controls without accessible names")
	}

	headingCredit, headingCount := headingOrderCredit(doc)
	if headingCount > 0 && headingCredit < 1.0 {
		notes = append(notes, "Heading levels are skipped")
	}

	score := 20 * (langRatio + altRatio + labelRatio + controlRatio + headingCredit)

	return CriterionResult{
		Score:  clamp100(round2(score)),
		Method: MethodLocalHeuristics,
		Details: map[string]any{
			"lang_declared":        langRatio == 1.0,
			"image_alt_coverage":   round2(altRatio),
			"form_label_coverage":  round2(labelRatio),
			"control_label_ratio":  round2(controlRatio),
			"heading_order_credit": headingCredit,
			"heading_count":        headingCount,
		},
		Notes: notes,
	}
}

// formLabelCoverage reports the share of form fields with an accessible
// label: aria-label, title, a <label for> match, or a wrapping <label>.
func formLabelCoverage(doc page.Document) float64 {
	labelFor := map[string]struct{}{}
	labels := doc.FindAll("label", nil)
	for _, label := range labels {
		if id, ok := label.Attr("for"); ok && id != "" {
			labelFor[id] = struct{}{}
		}
	}

	selfLabelled := func(n page.Node) bool {
		if v, ok := n.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
			return true
		}
		if v, ok := n.Attr("title"); ok && strings.TrimSpace(v) != "" {
			return true
		}
		if id, ok := n.Attr("id"); ok {
			if _, hit := labelFor[id]; hit {
				return true
			}
		}
		return false
	}

	total, labelled := 0, 0
	for _, tag := range []string{"input", "select", "textarea"} {
		fields := doc.FindAll(tag, isLabelCandidate)
		total += len(fields)
		for _, f := range fields {
			if selfLabelled(f) {
				labelled++
			}
		}
		// Fields wrapped in a label but carrying no label of their own.
		for _, label := range labels {
			labelled += len(label.FindAll(tag, func(n page.Node) bool {
				return isLabelCandidate(n) && !selfLabelled(n)
			}))
		}
	}

	if total == 0 {
		return 1.0
	}
	ratio := float64(labelled) / float64(total)
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}

// isLabelCandidate excludes inputs that never need a visible label.
func isLabelCandidate(n page.Node) bool {
	typ := strings.ToLower(strings.TrimSpace(page.AttrOr(n, "type", "")))
	switch typ {
	case "hidden", "submit", "button", "reset", "image":
		return false
	}
	return true
}

// controlLabelCoverage reports the share of buttons and button-type inputs
// with an accessible name: text, aria-label, title, or value.
func controlLabelCoverage(doc page.Document) float64 {
	named := func(n page.Node) bool {
		if n.Text() != "" {
			return true
		}
		for _, attr := range []string{"aria-label", "title", "value"} {
			if v, ok := n.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return true
			}
		}
		return false
	}

	controls := doc.FindAll("button", nil)
	controls = append(controls, doc.FindAll("input", func(n page.Node) bool {
		typ := strings.ToLower(strings.TrimSpace(page.AttrOr(n, "type", "")))
		return typ == "button" || typ == "submit" || typ == "reset"
	})...)

	if len(controls) == 0 {
		return 1.0
	}
	labelled := 0
	for _, c := range controls {
		if named(c) {
			labelled++
		}
	}
	return float64(labelled) / float64(len(controls))
}

// headingOrderCredit rates heading-level discipline: the ratio of level
// jumps (a step down of more than one level) to heading-to-heading
// transitions. Pages without headings get a fixed neutral 0.6.
func headingOrderCredit(doc page.Document) (float64, int) {
	headings := doc.FindAll("h1, h2, h3, h4, h5, h6", nil)
	if len(headings) == 0 {
		return 0.6, 0
	}
	if len(headings) == 1 {
		return 1.0, 1
	}

	jumps, transitions := 0, 0
	prev := headingLevel(headings[0])
	for _, h := range headings[1:] {
		level := headingLevel(h)
		transitions++
		if level > prev+1 {
			jumps++
		}
		prev = level
	}

	ratio := float64(jumps) / float64(transitions)
	switch {
	case ratio == 0:
		return 1.0, len(headings)
	case ratio <= 0.25:
		return 0.7, len(headings)
	case ratio <= 0.5:
		return 0.4, len(headings)
	default:
		return 0.2, len(headings)
	}
}

func headingLevel(n page.Node) int {
	tag := n.Tag()
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 6
}

// ─── Best practices ─────────────────────────────────────────────────────

// ScoreBestPractices runs the binary hygiene checks: doctype, mixed
// content, deprecated tags, favicon and unsafe target="_blank" anchors.
func ScoreBestPractices(res *webclient.FetchResult, doc page.Document) CriterionResult {
	points := 0.0
	notes := []string{}
	details := map[string]any{}

	doctype := res != nil && hasDoctype(res.Body)
	if doctype {
		points += 20
	} else {
		notes = append(notes, "Missing <!doctype html> declaration")
	}
	details["doctype"] = doctype

	mixed := 0
	if res != nil && strings.HasPrefix(strings.ToLower(res.FinalURL), "https://") {
		mixed = mixedContentCount(doc)
	}
	if mixed == 0 {
		points += 25
	} else {
		notes = append(notes, fmt.Sprintf("Mixed content: %d http:// resources on an HTTPS page", mixed))
	}
	details["mixed_content"] = mixed

	deprecated := 0
	for _, tag := range deprecatedTags {
		deprecated += len(doc.FindAll(tag, nil))
	}
	if deprecated == 0 {
		points += 20
	} else {
		notes = append(notes, fmt.Sprintf("Deprecated HTML tags in use: %d", deprecated))
	}
	details["deprecated_tags"] = deprecated

	favicon := len(doc.FindAll("link", func(n page.Node) bool {
		rel, _ := n.Attr("rel")
		return strings.Contains(strings.ToLower(rel), "icon")
	})) > 0
	if favicon {
		points += 15
	} else {
		notes = append(notes, "No favicon link found")
	}
	details["favicon"] = favicon

	unsafeBlank := len(doc.FindAll("a", func(n page.Node) bool {
		if !strings.EqualFold(page.AttrOr(n, "target", ""), "_blank") {
			return false
		}
		rel := strings.ToLower(page.AttrOr(n, "rel", ""))
		return !strings.Contains(rel, "noopener") && !strings.Contains(rel, "noreferrer")
	}))
	if unsafeBlank == 0 {
		points += 20
	} else {
		notes = append(notes, fmt.Sprintf(`target="_blank" links without rel=noopener: %d`, unsafeBlank))
	}
	details["unsafe_blank_links"] = unsafeBlank

	return CriterionResult{
		Score:   clamp100(round2(points)),
		Method:  MethodLocalHeuristics,
		Details: details,
		Notes:   notes,
	}
}

func hasDoctype(body []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 256)])))
	return strings.HasPrefix(head, "<!doctype")
}

// mixedContentCount counts sub-resource references fetched over plain HTTP.
func mixedContentCount(doc page.Document) int {
	plainHTTP := func(attr string) page.Predicate {
		return func(n page.Node) bool {
			v, _ := n.Attr(attr)
			return strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "http://")
		}
	}
	count := 0
	for _, tag := range []string{"img", "script", "iframe", "audio", "video", "source", "embed"} {
		count += len(doc.FindAll(tag, plainHTTP("src")))
	}
	count += len(doc.FindAll("link", func(n page.Node) bool {
		rel := strings.ToLower(page.AttrOr(n, "rel", ""))
		if rel != "stylesheet" && !strings.Contains(rel, "icon") {
			return false
		}
		return plainHTTP("href")(n)
	}))
	return count
}

// ─── Shared document queries ────────────────────────────────────────────

func firstText(doc page.Document, tag string) string {
	if nodes := doc.FindAll(tag, nil); len(nodes) > 0 {
		return nodes[0].Text()
	}
	return ""
}

func metaContent(doc page.Document, name string) string {
	nodes := doc.FindAll("meta", func(n page.Node) bool {
		v, _ := n.Attr("name")
		return strings.EqualFold(strings.TrimSpace(v), name)
	})
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(page.AttrOr(nodes[0], "content", ""))
}

func hasMetaNamed(doc page.Document, name string) bool {
	return len(doc.FindAll("meta", func(n page.Node) bool {
		v, _ := n.Attr("name")
		return strings.EqualFold(strings.TrimSpace(v), name)
	})) > 0
}

func hasLinkRel(doc page.Document, rel string) bool {
	return len(doc.FindAll("link", func(n page.Node) bool {
		v, _ := n.Attr("rel")
		return strings.EqualFold(strings.TrimSpace(v), rel)
	})) > 0
}

func htmlLang(doc page.Document) string {
	if nodes := doc.FindAll("html", nil); len(nodes) > 0 {
		return strings.TrimSpace(page.AttrOr(nodes[0], "lang", ""))
	}
	return ""
}

// imageAltCoverage is the share of images carrying a non-empty alt
// attribute; pages without images get full credit.
func imageAltCoverage(doc page.Document) float64 {
	images := doc.FindAll("img", nil)
	if len(images) == 0 {
		return 1.0
	}
	withAlt := 0
	for _, img := range images {
		if alt, ok := img.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			withAlt++
		}
	}
	return float64(withAlt) / float64(len(images))
}
