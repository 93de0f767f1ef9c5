package pgschema

// information_schema columns are domains pgx has no codec for, so every
// column is cast to a base type.
const (
	querySelectRoutines = `
SELECT r.specific_name::text, r.routine_name::text, r.routine_type::text
FROM   information_schema.routines r
WHERE  r.routine_schema = $1
AND    r.routine_type IN ('FUNCTION', 'PROCEDURE')
ORDER BY r.routine_name;
`
	querySelectParameters = `
SELECT   p.ordinal_position::int,
         coalesce(p.parameter_name, '')::text,
         p.data_type::text,
         p.character_maximum_length::int,
         p.parameter_mode::text
FROM     information_schema.parameters p
WHERE    p.specific_schema = $1
AND      p.specific_name   = $2
ORDER BY p.ordinal_position;
`
)
