package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/judge"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/tagresolver"
)

// resolvedVariant is one concrete tag expanded from a variant specifier,
// paired with the registry source it came from.
type resolvedVariant struct {
	Tag            string
	Source         string
	ModelName      string
	PulledOnDemand bool
}

// splitSpecifier splits a CLI variant specifier of the form
// "source:pattern" (e.g. "llama3:*", "hf.co/ns/repo:Q4_*") on its final
// colon, since a third-party source itself may contain colons in neither
// of the forms this codebase accepts.
func splitSpecifier(spec string) (source, pattern string, err error) {
	i := strings.LastIndex(spec, ":")
	if i < 0 {
		return "", "", fmt.Errorf("variant specifier %q missing :tag", spec)
	}
	return spec[:i], spec[i+1:], nil
}

// modelReference builds the inference-server model name for source/tag.
func modelReference(source, tag string) string {
	return source + ":" + tag
}

// expandVariants resolves every specifier against resolver, de-duplicating
// case-insensitively across specifiers and preserving first-seen order
// (spec.md §4.4 EXPAND_TAGS).
func expandVariants(ctx context.Context, resolver *tagresolver.Resolver, specifiers []string) ([]resolvedVariant, error) {
	seen := make(map[string]bool)
	var out []resolvedVariant
	for _, spec := range specifiers {
		source, pattern, err := splitSpecifier(spec)
		if err != nil {
			return nil, qcerr.Wrap(qcerr.KindConfiguration, "expandTags", "", 1, err)
		}
		tags, err := resolver.Resolve(ctx, source, pattern)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			key := strings.ToLower(source) + ":" + strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, resolvedVariant{Tag: tag, Source: source, ModelName: modelReference(source, tag)})
		}
	}
	if len(out) == 0 {
		return nil, qcerr.New(qcerr.KindConfiguration, "expandTags", "").WithMessage("no variants matched the given specifiers")
	}
	return out, nil
}

// electBase picks the base variant's index: baseTag if given, else the
// first well-known half-precision tag pattern, else the first variant
// (spec.md §3's base-election rule, applied before any variant is run
// rather than after the fact as store.Document.ReconcileBase does for a
// reopened document).
func electBase(variants []resolvedVariant, baseTag string) (int, error) {
	if baseTag != "" {
		for i, v := range variants {
			if strings.EqualFold(v.Tag, baseTag) {
				return i, nil
			}
		}
		return -1, qcerr.New(qcerr.KindConfiguration, "baseDecision", "").
			WithMessage(fmt.Sprintf("base tag %q not among resolved variants", baseTag))
	}
	for i, v := range variants {
		switch strings.ToLower(v.Tag) {
		case "fp16", "f16", "fp32", "f32", "bf16":
			return i, nil
		}
	}
	return 0, nil
}

// reorderBaseFirst moves the elected base variant to the front, leaving
// the rest in resolution order, so the engine can always run index 0
// first and rely on its answers being available to every later variant.
func reorderBaseFirst(variants []resolvedVariant, baseIdx int) []resolvedVariant {
	if baseIdx == 0 {
		return variants
	}
	out := make([]resolvedVariant, 0, len(variants))
	out = append(out, variants[baseIdx])
	for i, v := range variants {
		if i == baseIdx {
			continue
		}
		out = append(out, v)
	}
	return out
}

// buildJudge constructs a Judge from a CLI specifier: empty disables the
// pass, an "@provider:key/model" form builds a cloud adapter via registry,
// anything else is treated as a model name on the same inference server
// (spec.md §4.3).
func buildJudge(client *inference.Client, registry *judge.Registry, specifier string, judgeCtxSize int) (judge.Judge, error) {
	if specifier == "" {
		return nil, nil
	}
	if strings.HasPrefix(specifier, "@") {
		provider, apiKey, endpoint, model, err := judge.ParseSpecifier(specifier)
		if err != nil {
			return nil, qcerr.Wrap(qcerr.KindConfiguration, "buildJudge", "", 1, err)
		}
		j, err := registry.Build(provider, model, apiKey, endpoint)
		if err != nil {
			return nil, qcerr.Wrap(qcerr.KindConfiguration, "buildJudge", "", 1, err)
		}
		return j, nil
	}
	return judge.NewLocalJudge(client, specifier, judgeCtxSize), nil
}

// showWithRetry wraps Client.Show in the engine's normal retry policy.
func (e *Engine) showWithRetry(ctx context.Context, model string) (inference.ModelDetails, error) {
	var details inference.ModelDetails
	err := retry.Do(ctx, e.Retry.Normal, nil, func() error {
		var showErr error
		details, showErr = e.Client.Show(ctx, model, false)
		return showErr
	})
	return details, err
}

// versionWithRetry wraps Client.Version in the engine's normal retry
// policy (spec.md §4.1 VERIFY_ENDPOINTS).
func (e *Engine) versionWithRetry(ctx context.Context) (string, error) {
	var version string
	err := retry.Do(ctx, e.Retry.Normal, nil, func() error {
		var verErr error
		version, verErr = e.Client.Version(ctx)
		return verErr
	})
	return version, err
}

// sizeAndDigestFor looks up model's size and digest from a fresh listing,
// used to fill in a Variant Result's metadata after Show confirms the
// model exists (Show itself does not return size or digest).
func (e *Engine) sizeAndDigestFor(ctx context.Context, model string) (int64, string, error) {
	var summaries []inference.ModelSummary
	err := retry.Do(ctx, e.Retry.Normal, nil, func() error {
		var listErr error
		summaries, listErr = e.Client.List(ctx)
		return listErr
	})
	if err != nil {
		return 0, "", err
	}
	for _, s := range summaries {
		if strings.EqualFold(s.Name, model) {
			return s.Size, s.Digest, nil
		}
	}
	return 0, "", nil
}
