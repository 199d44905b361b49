package sqlgraph_test

import (
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/field"
)

type author struct {
	ID    int64
	Name  string
	Posts []*post
}

type post struct {
	ID       int64
	AuthorID int64
	EditorID int64
	Title    string
	Author   *author
	Editor   *author
	Comments []*comment
}

type comment struct {
	ID     int64
	PostID int64
	Body   string
}

type blog struct {
	authors, posts, comments *schema.Table

	authorID, authorName                      *schema.Column
	postID, postAuthor, postEditor, postTitle *schema.Column
	commentID, commentPost, commentBody       *schema.Column

	authorMapper  *mapping.Mapper[*author]
	postMapper    *mapping.Mapper[*post]
	commentMapper *mapping.Mapper[*comment]
}

func newBlog() *blog {
	b := &blog{
		authors:  schema.NewTable("authors"),
		posts:    schema.NewTable("posts"),
		comments: schema.NewTable("comments"),
	}
	b.authorID = b.authors.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
	b.authorName = b.authors.AddColumn("name", field.TypeString)
	b.postID = b.posts.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
	b.postAuthor = b.posts.AddColumn("author_id", field.TypeInt64)
	b.postEditor = b.posts.AddColumn("editor_id", field.TypeInt64, schema.Nullable())
	b.postTitle = b.posts.AddColumn("title", field.TypeString)
	b.commentID = b.comments.AddColumn("id", field.TypeInt64, schema.PrimaryKey())
	b.commentPost = b.comments.AddColumn("post_id", field.TypeInt64)
	b.commentBody = b.comments.AddColumn("body", field.TypeString)

	b.authorMapper = mapping.MustMapper(b.authors, func() *author { return &author{} }, []mapping.Binding[*author]{
		mapping.Bind(b.authorID, func(a *author) int64 { return a.ID }, func(a *author, v int64) { a.ID = v }),
		mapping.Bind(b.authorName, func(a *author) string { return a.Name }, func(a *author, v string) { a.Name = v }),
	})
	b.postMapper = mapping.MustMapper(b.posts, func() *post { return &post{} }, []mapping.Binding[*post]{
		mapping.Bind(b.postID, func(p *post) int64 { return p.ID }, func(p *post, v int64) { p.ID = v }),
		mapping.Bind(b.postAuthor, func(p *post) int64 { return p.AuthorID }, func(p *post, v int64) { p.AuthorID = v }),
		mapping.Bind(b.postEditor, func(p *post) int64 { return p.EditorID }, func(p *post, v int64) { p.EditorID = v }),
		mapping.Bind(b.postTitle, func(p *post) string { return p.Title }, func(p *post, v string) { p.Title = v }),
	})
	b.commentMapper = mapping.MustMapper(b.comments, func() *comment { return &comment{} }, []mapping.Binding[*comment]{
		mapping.Bind(b.commentID, func(c *comment) int64 { return c.ID }, func(c *comment, v int64) { c.ID = v }),
		mapping.Bind(b.commentPost, func(c *comment) int64 { return c.PostID }, func(c *comment, v int64) { c.PostID = v }),
		mapping.Bind(b.commentBody, func(c *comment) string { return c.Body }, func(c *comment, v string) { c.Body = v }),
	})
	return b
}
