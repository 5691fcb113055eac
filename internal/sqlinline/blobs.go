package sqlinline

const QUpsertBlob = `--sql 901ff80b-1dbd-43c8-b3fc-58c9016acb0a
insert into blobs (name, payload, updated_at)
values ($1, $2, now())
on conflict (name)
do update set payload = excluded.payload, updated_at = now();
`

const QSelectBlob = `--sql 5b49af48-5a2a-4a1b-9db2-8fd97bf5f89f
select payload
from blobs
where name = $1;
`

const QDeleteBlob = `--sql 11e933ec-3d28-43bf-b029-5978241b7e8c
delete from blobs
where name = $1;
`
