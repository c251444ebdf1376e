// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	ManifestAmbiguousId
	EntryNotFoundId
	EntryExtensionUnsupportedId
	WorkingDirNotFoundId
	NpmFileNotFoundId
	EnvFileNotFoundId
	ConfigLoadFailedId
	BundleFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue Markdown with the given glamour style
// ("dark", "light", "notty", "auto" or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const (
	manifestDocs HttpLink = "https://foundryvtt.com/article/module-development/"
	systemDocs   HttpLink = "https://foundryvtt.com/article/system-development/"
	esbuildDocs  HttpLink = "https://esbuild.github.io/api/#build"
)

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No Foundry VTT package found!

fvttdev scans the working directory recursively for a ` + "`module.json`" + ` or
` + "`system.json`" + `. Hidden directories and the skip directories
(` + "`deploy`, `dist`, `node_modules`" + ` by default) are not searched.

## Things you can try:
- Run fvttdev from your package directory, or point it there:
~~~
$ fvttdev bundle --cwd ./my-module
~~~
- Check that the manifest is not inside a skipped directory
- Adjust ` + "`skip_dirs`" + ` in ` + "`fvttdev.cue`",
		docLinks: []HttpLink{manifestDocs, systemDocs},
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid manifest!

The manifest must declare its ES module entry points as an array of paths
relative to the manifest directory.

## Example:
~~~json
{
  "id": "my-module",
  "title": "My Module",
  "esmodules": ["src/index.js"]
}
~~~

## Things you can try:
- Validate the manifest:
~~~
$ fvttdev validate manifest --strict
~~~`,
		docLinks: []HttpLink{manifestDocs},
	}

	manifestAmbiguousIssue = &Issue{
		id: ManifestAmbiguousId,
		mdMsg: `
# More than one manifest found!

Strict manifest selection is enabled and the scanned tree contains several
` + "`module.json`/`system.json`" + ` files (nested demo fixtures are a common cause).

## Things you can try:
- Point ` + "`--cwd`" + ` at the package you want to build
- Move fixtures into a hidden or skipped directory
- Drop ` + "`--strict-manifest`" + ` to take the first manifest found`,
	}

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# Entry point not found!

Each ` + "`esmodules`" + ` path is resolved relative to the manifest. When the
declared ` + "`.js`" + ` file does not exist, fvttdev tries the same path with
` + "`.ts`" + ` and then ` + "`.tsx`" + `, so TypeScript sources can stay behind a
` + "`.js`" + ` manifest entry.

## Things you can try:
- Check the spelling and case of the path in the manifest
- Make sure the source file exists with one of: ` + "`.js .ts .tsx`",
		docLinks: []HttpLink{manifestDocs},
	}

	entryExtensionUnsupportedIssue = &Issue{
		id: EntryExtensionUnsupportedId,
		mdMsg: `
# Unsupported entry point extension!

Manifest entry points must use an ECMAScript source extension:
` + "`.js .jsx .mjs .es .es6`" + `.

## Things you can try:
- Declare the entry with a ` + "`.js`" + ` extension even when the source is TypeScript`,
	}

	workingDirNotFoundIssue = &Issue{
		id: WorkingDirNotFoundId,
		mdMsg: `
# Working directory not found!

The directory given with ` + "`--cwd`" + ` (or ` + "`FVTTDEV_CWD`" + `) does not exist or is not
a directory.

## Things you can try:
- Check the path, relative paths resolve against the current shell directory`,
	}

	npmFileNotFoundIssue = &Issue{
		id: NpmFileNotFoundId,
		mdMsg: `
# Isolated dependency disappeared!

A file under the package ` + "`npm/`" + ` directory was found during the scan but no
longer exists. This usually means another process is rewriting that directory.

## Things you can try:
- Wait for the other build to finish and retry`,
	}

	envFileNotFoundIssue = &Issue{
		id: EnvFileNotFoundId,
		mdMsg: `
# Environment file not found!

` + "`--env <name>`" + ` loads ` + "`env/<name>.env`" + ` from the working directory.

## Things you can try:
- Create the file, for example ` + "`env/dev.env`" + `:
~~~
FVTTDEV_DEPLOY_PATH=/srv/foundry/Data/modules/my-module
~~~`,
		extLinks: []HttpLink{"https://github.com/joho/godotenv"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check ` + "`fvttdev.cue`" + ` for syntax errors
- Print the effective configuration:
~~~
$ fvttdev config show
~~~
- Skip the local file with ` + "`--ignore-local-config`",
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	bundleFailedIssue = &Issue{
		id: BundleFailedId,
		mdMsg: `
# Bundling failed!

esbuild reported errors for one or more entries. The messages above show the
file and line of each problem.

## Things you can try:
- Mark packages that must not be inlined as external:
~~~
$ fvttdev bundle --external '^/systems/'
~~~`,
		extLinks: []HttpLink{esbuildDocs},
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():          manifestNotFoundIssue,
		manifestInvalidIssue.Id():           manifestInvalidIssue,
		manifestAmbiguousIssue.Id():         manifestAmbiguousIssue,
		entryNotFoundIssue.Id():             entryNotFoundIssue,
		entryExtensionUnsupportedIssue.Id(): entryExtensionUnsupportedIssue,
		workingDirNotFoundIssue.Id():        workingDirNotFoundIssue,
		npmFileNotFoundIssue.Id():           npmFileNotFoundIssue,
		envFileNotFoundIssue.Id():           envFileNotFoundIssue,
		configLoadFailedIssue.Id():          configLoadFailedIssue,
		bundleFailedIssue.Id():              bundleFailedIssue,
	}
)

// Values returns all catalog issues ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
