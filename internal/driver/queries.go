package driver

// Every node and edge carries group_id = session id; timestamps are stored
// as fixed-width UTC strings so they order lexically.
const (
	PingQuery = `RETURN 1 AS ok`

	MergeSessionQuery = `
		MERGE (s:Session {uuid: $group_id})
		ON CREATE SET s.group_id = $group_id,
			s.created_at = $created_at
		RETURN s.uuid AS uuid
	`

	MergeEpisodeQuery = `
		MERGE (n:Episodic {uuid: $uuid})
		ON CREATE SET n.name = $name,
			n.group_id = $group_id,
			n.seq = $seq,
			n.content = $content,
			n.source = $source,
			n.created_at = $created_at
		SET n.degraded = $degraded
		RETURN n.uuid AS uuid
	`

	GetEpisodeContentQuery = `
		MATCH (n:Episodic {uuid: $uuid})
		RETURN n.content AS content
	`

	MergeHasEpisodeEdgeQuery = `
		MATCH (s:Session {uuid: $group_id})
		MATCH (ep:Episodic {uuid: $episode_uuid})
		MERGE (s)-[e:HAS_EPISODE]->(ep)
		SET e.group_id = $group_id
	`

	MergeNextEpisodeEdgeQuery = `
		MATCH (prev:Episodic {uuid: $source_uuid})
		MATCH (next:Episodic {uuid: $target_uuid})
		MERGE (prev)-[e:NEXT_EPISODE]->(next)
		SET e.group_id = $group_id
	`

	MergeEntityNodeQuery = `
		MERGE (n:Entity {uuid: $uuid})
		SET n.key = $key,
			n.name = $name,
			n.entity_type = $entity_type,
			n.group_id = $group_id,
			n.summary = $summary,
			n.first_seen = $first_seen,
			n.last_seen = $last_seen,
			n.episodes = $episodes
		RETURN n.uuid AS uuid
	`

	MergeMentionsEdgeQuery = `
		MATCH (ep:Episodic {uuid: $episode_uuid})
		MATCH (n:Entity {uuid: $entity_uuid})
		MERGE (ep)-[e:MENTIONS]->(n)
		SET e.group_id = $group_id
	`

	MergeRelationshipQuery = `
		MATCH (source:Entity {uuid: $source_uuid})
		MATCH (target:Entity {uuid: $target_uuid})
		MERGE (source)-[e:RELATES_TO {uuid: $uuid}]->(target)
		SET e.key = $key,
			e.name = $name,
			e.group_id = $group_id,
			e.fact = $fact,
			e.fact_texts = $fact_texts,
			e.fact_episodes = $fact_episodes,
			e.fact_seqs = $fact_seqs,
			e.fact_times = $fact_times,
			e.first_seen = $first_seen,
			e.last_seen = $last_seen
		RETURN e.uuid AS uuid
	`

	GetSessionEntitiesQuery = `
		MATCH (n:Entity {group_id: $group_id})
		RETURN n.uuid AS uuid, n.key AS key, n.name AS name, n.entity_type AS entity_type,
			n.summary AS summary, n.first_seen AS first_seen, n.last_seen AS last_seen,
			n.episodes AS episodes
	`

	GetSessionRelationshipsQuery = `
		MATCH (source:Entity {group_id: $group_id})-[e:RELATES_TO]->(target:Entity {group_id: $group_id})
		RETURN e.uuid AS uuid, e.key AS key, e.name AS name,
			source.uuid AS source_uuid, target.uuid AS target_uuid,
			source.key AS source_key, target.key AS target_key,
			e.fact_texts AS fact_texts, e.fact_episodes AS fact_episodes,
			e.fact_seqs AS fact_seqs, e.fact_times AS fact_times,
			e.first_seen AS first_seen, e.last_seen AS last_seen
	`

	// An empty $group_id spans every session.
	GetRecentEntitiesQuery = `
		MATCH (n:Entity)
		WHERE $group_id = '' OR n.group_id = $group_id
		RETURN n.uuid AS uuid, n.key AS key, n.name AS name, n.entity_type AS entity_type,
			n.group_id AS group_id, n.summary AS summary, n.first_seen AS first_seen,
			n.last_seen AS last_seen, n.episodes AS episodes
		ORDER BY n.first_seen DESC, n.key ASC
		LIMIT $limit
	`

	GetChangedEntitiesQuery = `
		MATCH (n:Entity)
		WHERE ($group_id = '' OR n.group_id = $group_id) AND n.last_seen > $since
		RETURN n.uuid AS uuid, n.key AS key, n.name AS name, n.entity_type AS entity_type,
			n.group_id AS group_id, n.summary AS summary, n.first_seen AS first_seen,
			n.last_seen AS last_seen, n.episodes AS episodes
		ORDER BY n.last_seen DESC, n.key ASC
		LIMIT $limit
	`

	GetEdgesAmongQuery = `
		MATCH (source:Entity)-[e:RELATES_TO]->(target:Entity)
		WHERE source.uuid IN $uuids AND target.uuid IN $uuids
		RETURN e.uuid AS uuid, e.key AS key, e.name AS name, e.group_id AS group_id,
			source.uuid AS source_uuid, target.uuid AS target_uuid,
			source.key AS source_key, target.key AS target_key,
			e.fact_texts AS fact_texts, e.fact_episodes AS fact_episodes,
			e.fact_seqs AS fact_seqs, e.fact_times AS fact_times,
			e.first_seen AS first_seen, e.last_seen AS last_seen
	`

	CountSessionGraphQuery = `
		MATCH (n:Entity)
		WHERE $group_id = '' OR n.group_id = $group_id
		OPTIONAL MATCH (n)-[e:RELATES_TO]->(:Entity)
		RETURN count(DISTINCT n) AS nodes, count(e) AS edges
	`

	CountChangedQuery = `
		MATCH (n:Entity)
		WHERE ($group_id = '' OR n.group_id = $group_id) AND n.last_seen > $since
		OPTIONAL MATCH (n)-[e:RELATES_TO]->(:Entity)
		WHERE e.last_seen > $since
		RETURN count(DISTINCT n) AS nodes, count(e) AS edges
	`
)

var IndexQueries = []string{
	"CREATE INDEX ON :Entity(uuid);",
	"CREATE INDEX ON :Episodic(uuid);",
	"CREATE INDEX ON :Session(uuid);",
	"CREATE INDEX ON :Entity(group_id);",
	"CREATE INDEX ON :Episodic(group_id);",
}
