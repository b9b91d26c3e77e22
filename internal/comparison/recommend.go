// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package comparison

import (
	"fmt"
	"strings"
)

var verdictTemplates = map[Verdict]string{
	VerdictExcellent:  "%s is an excellent match for your priorities",
	VerdictGood:       "%s is a good match for your priorities",
	VerdictFair:       "%s is a fair option with some trade-offs",
	VerdictUnsuitable: "%s is unlikely to suit your priorities",
}

func labels(keys []string) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if c, ok := lookup(k); ok {
			names = append(names, c.label)
		}
	}
	return strings.Join(names, ", ")
}

func describe(name string, verdict Verdict, strengths, weaknesses []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, verdictTemplates[verdict], name)
	if len(strengths) > 0 {
		fmt.Fprintf(&b, "; stands out for %s", labels(strengths))
	}
	if len(weaknesses) > 0 {
		fmt.Fprintf(&b, "; falls behind on %s", labels(weaknesses))
	}
	b.WriteString(".")
	return b.String()
}
