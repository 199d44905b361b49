package sqlgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql/sqlgraph"
	"github.com/syssam/relmap/schema"
)

func TestBuildSelectQuery(t *testing.T) {
	b := newBlog()
	sel, err := sqlgraph.NewJoinedStrategiesSelect[*author](b.authorMapper)
	require.NoError(t, err)
	posts, err := sel.Add(sqlgraph.Root, b.postMapper, b.authorID, b.postAuthor, true, addPosts())
	require.NoError(t, err)
	_, err = sel.Add(posts, b.commentMapper, b.postID, b.commentPost, false, addComments())
	require.NoError(t, err)

	q := sel.BuildSelectQuery()
	assert.Equal(t,
		"select authors.id as authors_id, authors.name as authors_name,"+
			" posts.id as posts_id, posts.author_id as posts_author_id, posts.editor_id as posts_editor_id, posts.title as posts_title,"+
			" comments.id as comments_id, comments.post_id as comments_post_id, comments.body as comments_body"+
			" from authors left outer join posts on authors.id = posts.author_id"+
			" inner join comments on posts.id = comments.post_id",
		q.String())
	assert.Equal(t, map[*schema.Column]string{
		b.authorID: "authors_id", b.authorName: "authors_name",
		b.postID: "posts_id", b.postAuthor: "posts_author_id", b.postEditor: "posts_editor_id", b.postTitle: "posts_title",
		b.commentID: "comments_id", b.commentPost: "comments_post_id", b.commentBody: "comments_body",
	}, q.Aliases())
	assert.Len(t, q.Projections(), 9)
	_, ok := q.Reader("posts_title")
	assert.True(t, ok)
	_, ok = q.Reader("nope")
	assert.False(t, ok)

	where, err := q.Where(b.authorID, 3)
	require.NoError(t, err)
	assert.Equal(t, q.String()+" where authors.id in (?, ?, ?)", where)
}

func TestBuildSelectQuery_SameTableTwice(t *testing.T) {
	b := newBlog()
	sel, err := sqlgraph.NewJoinedStrategiesSelect[*post](b.postMapper)
	require.NoError(t, err)
	writer, err := sel.Add(sqlgraph.Root, b.authorMapper, b.postAuthor, b.authorID, false,
		sqlgraph.Fixer(func(p *post, a *author) { p.Author = a }))
	require.NoError(t, err)
	editor, err := sel.Add(sqlgraph.Root, b.authorMapper, b.postEditor, b.authorID, true,
		sqlgraph.Fixer(func(p *post, a *author) { p.Editor = a }))
	require.NoError(t, err)
	assert.NotEqual(t, writer, editor)
	wa, _ := sel.Alias(writer)
	ea, _ := sel.Alias(editor)
	assert.Equal(t, "authors", wa)
	assert.Equal(t, "authors2", ea)

	q := sel.BuildSelectQuery()
	assert.Contains(t, q.String(), "authors2.name as authors2_name")
	assert.Contains(t, q.String(), " inner join authors on posts.author_id = authors.id")
	assert.Contains(t, q.String(), " left outer join authors as authors2 on posts.editor_id = authors2.id")
	assert.Equal(t, "authors_id", q.Aliases()[b.authorID], "closest projection wins")

	tr := sqlgraph.NewTransformer[*post](q)
	p, err := tr.Transform(map[string]any{
		"posts_id": int64(1), "posts_author_id": int64(7), "posts_editor_id": int64(8), "posts_title": "t",
		"authors_id": int64(7), "authors_name": "writer",
		"authors2_id": int64(8), "authors2_name": "editor",
	})
	require.NoError(t, err)
	require.NotNil(t, p.Author)
	require.NotNil(t, p.Editor)
	assert.Equal(t, "writer", p.Author.Name)
	assert.Equal(t, "editor", p.Editor.Name)
}

func TestBuildSelectQuery_ProjectionCollision(t *testing.T) {
	b := newBlog()
	sel, err := sqlgraph.NewJoinedStrategiesSelect[*author](b.authorMapper)
	require.NoError(t, err)
	posts, err := sel.Add(sqlgraph.Root, b.postMapper, b.authorID, b.postAuthor, false, nil)
	require.NoError(t, err)
	// p_author.id and p.author_id both project as p_author_id.
	require.NoError(t, sel.SetAlias(sqlgraph.Root, "p_author"))
	require.NoError(t, sel.SetAlias(posts, "p"))
	q := sel.BuildSelectQuery()
	assert.Contains(t, q.String(), "p_author.id as p_author_id,")
	assert.Contains(t, q.String(), "p.author_id as p_author_id_1,")
	seen := make(map[string]bool)
	for _, p := range q.Projections() {
		assert.False(t, seen[p], "duplicate projection %s", p)
		seen[p] = true
	}
}

func TestSelectQueryWhereErrors(t *testing.T) {
	b := newBlog()
	sel, err := sqlgraph.NewJoinedStrategiesSelect[*author](b.authorMapper)
	require.NoError(t, err)
	q := sel.BuildSelectQuery()
	_, err = q.Where(b.postID, 2)
	assert.True(t, relmap.IsConfigError(err))
	_, err = q.Where(b.authorID, 0)
	assert.True(t, relmap.IsConfigError(err))
}
