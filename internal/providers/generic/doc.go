// Package generic implements providers.Site for WordPress-style manga
// readers: the pages of a chapter are the images inside one content
// container and the next chapter is linked from a navigation block.
package generic
